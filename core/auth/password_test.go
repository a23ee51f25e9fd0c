package auth

import "testing"

func TestPasswordHashing(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	const pepper = "test-pepper"
	hash := HashPassword("correct horse", salt, pepper)

	if !VerifyPassword("correct horse", salt, pepper, hash) {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword("wrong horse", salt, pepper, hash) {
		t.Fatal("wrong password accepted")
	}
	if VerifyPassword("correct horse", salt, "other-pepper", hash) {
		t.Fatal("wrong pepper accepted")
	}

	otherSalt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	if otherSalt == salt {
		t.Fatal("salts should differ")
	}
	if HashPassword("correct horse", otherSalt, pepper) == hash {
		t.Fatal("same hash across salts")
	}
}
