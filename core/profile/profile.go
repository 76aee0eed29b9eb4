package profile

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/session"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("profile not found")
)

// Profile is the editable part of a role record.
type Profile struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	Bio       string       `json:"bio"`
	Phone     string       `json:"phone"`
	AvatarURL string       `json:"avatar_url"`
	Role      session.Role `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Update replaces the editable fields of a profile. The role is not editable here.
type Update struct {
	Name      string `json:"name" validate:"required,max=150"`
	Bio       string `json:"bio" validate:"max=500"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

func (u *Update) Clean() {
	u.Name = core.CleanString(u.Name)
	u.Bio = core.CleanString(u.Bio)
	u.Phone = core.CleanString(u.Phone)
	u.AvatarURL = core.CleanString(u.AvatarURL)
}

func (u Update) document() core.Document {
	return core.Document{
		session.FieldName:      u.Name,
		session.FieldBio:       u.Bio,
		session.FieldPhone:     u.Phone,
		session.FieldAvatarURL: u.AvatarURL,
		session.FieldUpdatedAt: nowFunc().UTC(),
	}
}

func fromDocument(id string, doc core.Document) Profile {
	return Profile{
		ID:        id,
		Email:     doc.String(session.FieldEmail),
		Name:      doc.String(session.FieldName),
		Bio:       doc.String(session.FieldBio),
		Phone:     doc.String(session.FieldPhone),
		AvatarURL: doc.String(session.FieldAvatarURL),
		Role:      session.RecordRole(doc),
		CreatedAt: doc.Time(session.FieldCreatedAt),
		UpdatedAt: doc.Time(session.FieldUpdatedAt),
	}
}

type Service struct {
	store     core.RecordStore
	validator *core.Validator
}

func NewService(store core.RecordStore, validator *core.Validator) *Service {
	return &Service{store: store, validator: validator}
}

// Get returns the profile of principal id.
func (svc *Service) Get(ctx context.Context, id string) (Profile, error) {
	doc, err := svc.store.Get(ctx, core.CollectionUsers, id)
	if err != nil {
		if errors.Cause(err) == core.ErrRecordNotFound {
			return Profile{}, ErrNotFound
		}
		return Profile{}, errors.Wrap(err, "getting role record")
	}
	return fromDocument(id, doc), nil
}

// Update validates upd and merges it into the role record of principal id.
func (svc *Service) Update(ctx context.Context, id string, upd Update) (Profile, error) {
	upd.Clean()
	if err := svc.validator.Struct(upd); err != nil {
		return Profile{}, err
	}
	if _, err := svc.Get(ctx, id); err != nil {
		return Profile{}, err
	}
	if err := svc.store.Set(ctx, core.CollectionUsers, id, upd.document()); err != nil {
		return Profile{}, errors.Wrap(err, "updating role record")
	}
	return svc.Get(ctx, id)
}
