package account

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	gen := tokenGenerator{secretKey: []byte("secret"), timeout: 3 * 24 * time.Hour}

	now := time.Now()
	acc := Account{
		ID:        "8b0c3a0e-5b1f-4c4e-9a8e-1f1c9f0f6a11",
		Name:      "T",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = acc.SetPassword("pwd")

	validToken, err := gen.makeToken(acc)
	if err != nil {
		t.Fatalf("makeToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := gen.timeout + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := gen.makeToken(acc)
	nowFunc = time.Now // reset
	if err != nil {
		t.Fatalf("makeToken() failed: %v", err)
	}

	// same account, logged in since the token was issued
	loggedIn := acc
	loggedIn.LastLogin = now.Add(time.Minute)

	otherKey := tokenGenerator{secretKey: []byte("other"), timeout: gen.timeout}

	tests := []struct {
		name    string
		gen     tokenGenerator
		acc     Account
		token   string
		wantErr error
	}{
		{name: "no token", gen: gen, acc: acc, wantErr: errInvalidToken},
		{name: "invalid parts len", gen: gen, acc: acc, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", gen: gen, acc: acc, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", gen: gen, acc: acc, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", gen: gen, acc: acc, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", gen: gen, acc: acc, token: expiredToken, wantErr: errTokenExpired},
		{name: "logged in since", gen: gen, acc: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "other secret key", gen: otherKey, acc: acc, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", gen: gen, acc: acc, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.gen.verifyToken(tt.acc, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	acc := Account{ID: "8b0c3a0e-5b1f-4c4e-9a8e-1f1c9f0f6a11"}
	id, err := decodeUID(EncodeUID(acc))
	if err != nil {
		t.Fatalf("decodeUID() failed: %v", err)
	}
	if id != acc.ID {
		t.Errorf("decodeUID() = %s; want %s", id, acc.ID)
	}
	if _, err := decodeUID("%%%"); err == nil {
		t.Error("decodeUID() expected an error for an invalid uid")
	}
}
