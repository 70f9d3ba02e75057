package user

import (
	"errors"
	"testing"
	"time"
)

func validCreateInput() CreateUserInput {
	return CreateUserInput{
		Email:           "alice@example.com",
		Username:        "alice",
		Password:        "correct horse",
		PasswordConfirm: "correct horse",
	}
}

func TestCreateUserDefaults(t *testing.T) {
	_, err := CreateUser(validCreateInput(), nil, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err = CreateUser(validCreateInput(), nil, func() (string, error) { return "", errors.New("id generator error") })
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCreateUserNormalizesInput(t *testing.T) {
	fixedTime := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	input := validCreateInput()
	input.Email = "  Alice@Example.COM  "
	input.Username = "  Alice  "
	input.Bio = " builds things "

	created, err := CreateUser(input, func() time.Time { return fixedTime }, func() (string, error) {
		return "user-123", nil
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if created.ID != "user-123" {
		t.Fatalf("expected id user-123, got %q", created.ID)
	}
	if created.Email != "alice@example.com" {
		t.Fatalf("expected lowercased trimmed email, got %q", created.Email)
	}
	if created.Username != "alice" {
		t.Fatalf("expected lowercased trimmed username, got %q", created.Username)
	}
	if created.Bio != "builds things" {
		t.Fatalf("expected trimmed bio, got %q", created.Bio)
	}
	if !created.CreatedAt.Equal(fixedTime) || !created.UpdatedAt.Equal(fixedTime) {
		t.Fatalf("expected timestamps to match fixed time")
	}
	if created.PasswordHash == "" || created.PasswordHash == input.Password {
		t.Fatalf("expected hashed password, got %q", created.PasswordHash)
	}
}

func TestCheckPassword(t *testing.T) {
	created, err := CreateUser(validCreateInput(), nil, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if !CheckPassword(created.PasswordHash, "correct horse") {
		t.Fatal("expected matching password to verify")
	}
	if CheckPassword(created.PasswordHash, "wrong horse") {
		t.Fatal("expected mismatched password to fail")
	}
}

func TestNormalizeCreateUserInputValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateUserInput)
		wantErr error
	}{
		{name: "valid", mutate: func(in *CreateUserInput) {}, wantErr: nil},
		{name: "empty email", mutate: func(in *CreateUserInput) { in.Email = "   " }, wantErr: ErrInvalidEmail},
		{name: "missing at sign", mutate: func(in *CreateUserInput) { in.Email = "alice.example.com" }, wantErr: ErrInvalidEmail},
		{name: "missing domain dot", mutate: func(in *CreateUserInput) { in.Email = "alice@example" }, wantErr: ErrInvalidEmail},
		{name: "short password", mutate: func(in *CreateUserInput) { in.Password = "short"; in.PasswordConfirm = "short" }, wantErr: ErrInvalidPassword},
		{name: "long password", mutate: func(in *CreateUserInput) {
			long := make([]byte, 73)
			for i := range long {
				long[i] = 'a'
			}
			in.Password = string(long)
			in.PasswordConfirm = string(long)
		}, wantErr: ErrInvalidPassword},
		{name: "mismatched confirm", mutate: func(in *CreateUserInput) { in.PasswordConfirm = "different pass" }, wantErr: ErrPasswordMismatch},
		{name: "bio too long", mutate: func(in *CreateUserInput) {
			long := make([]byte, MaxBioLength+1)
			for i := range long {
				long[i] = 'b'
			}
			in.Bio = string(long)
		}, wantErr: ErrBioTooLong},
		{name: "location too long", mutate: func(in *CreateUserInput) {
			long := make([]byte, MaxLocationLength+1)
			for i := range long {
				long[i] = 'c'
			}
			in.Location = string(long)
		}, wantErr: ErrLocationTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validCreateInput()
			tt.mutate(&input)
			_, err := NormalizeCreateUserInput(input)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateUsernameFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "valid lowercase", input: "alice", wantErr: nil},
		{name: "valid with dots", input: "alice.b", wantErr: nil},
		{name: "valid with dashes", input: "alice-b", wantErr: nil},
		{name: "valid with underscores", input: "alice_b", wantErr: nil},
		{name: "valid with numbers", input: "alice123", wantErr: nil},
		{name: "valid min length", input: "abc", wantErr: nil},
		{name: "valid max length", input: "abcdefghijklmnopqrstuvwxyz012345", wantErr: nil},
		{name: "too short", input: "ab", wantErr: ErrInvalidUsername},
		{name: "too long", input: "abcdefghijklmnopqrstuvwxyz0123456", wantErr: ErrInvalidUsername},
		{name: "uppercase", input: "Alice", wantErr: ErrInvalidUsername},
		{name: "spaces", input: "ali ce", wantErr: ErrInvalidUsername},
		{name: "special chars", input: "ali@ce", wantErr: ErrInvalidUsername},
		{name: "empty", input: "", wantErr: ErrInvalidUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyProfileUpdate(t *testing.T) {
	fixedTime := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	current := User{
		ID:        "user-1",
		Email:     "alice@example.com",
		Username:  "alice",
		Bio:       "old bio",
		Location:  "Porto",
		CreatedAt: fixedTime.Add(-24 * time.Hour),
		UpdatedAt: fixedTime.Add(-24 * time.Hour),
	}

	updated, err := ApplyProfileUpdate(current, UpdateProfileInput{
		Username: "  Alice2  ",
		Bio:      "new bio",
		Location: "Lisbon",
	}, func() time.Time { return fixedTime })
	if err != nil {
		t.Fatalf("apply profile update: %v", err)
	}

	if updated.Username != "alice2" {
		t.Fatalf("expected username alice2, got %q", updated.Username)
	}
	if updated.Bio != "new bio" || updated.Location != "Lisbon" {
		t.Fatalf("expected updated profile fields, got %q %q", updated.Bio, updated.Location)
	}
	if !updated.UpdatedAt.Equal(fixedTime) {
		t.Fatalf("expected updated timestamp, got %v", updated.UpdatedAt)
	}
	if updated.Email != current.Email || !updated.CreatedAt.Equal(current.CreatedAt) {
		t.Fatal("expected email and created timestamp to be immutable")
	}

	_, err = ApplyProfileUpdate(current, UpdateProfileInput{Username: "ab"}, nil)
	if !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
}
