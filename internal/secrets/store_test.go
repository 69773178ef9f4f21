package secrets

import (
	"errors"
	"os"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	req := Request{
		AccountName:   "init0",
		PublicKey:     "RQRX1abc",
		PrivateKeyWIF: "5JsecretWIF",
	}
	if err := s.Save(req, "hunter2"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load("hunter2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != req {
		t.Fatalf("got %+v, want %+v", got, req)
	}

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestWrongPasswordAndCorruptLookTheSame(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Save(Request{AccountName: "init0"}, "right"); err != nil {
		t.Fatal(err)
	}

	_, wrongErr := s.Load("wrong")
	if !errors.Is(wrongErr, ErrDecrypt) {
		t.Fatalf("wrong password: got %v", wrongErr)
	}

	blob, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	blob[len(blob)-1] ^= 0xFF
	if err := os.WriteFile(s.Path(), blob, 0o600); err != nil {
		t.Fatal(err)
	}
	_, corruptErr := s.Load("right")
	if !errors.Is(corruptErr, ErrDecrypt) {
		t.Fatalf("corrupt file: got %v", corruptErr)
	}
	if wrongErr.Error() != corruptErr.Error() {
		t.Fatalf("errors differ: %q vs %q", wrongErr, corruptErr)
	}
}

func TestCiphertextDoesNotLeakPlaintext(t *testing.T) {
	blob, err := Encrypt([]byte("5JsecretWIF"), "pw")
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) == "5JsecretWIF" {
		t.Fatal("plaintext stored verbatim")
	}
	if len(blob) < saltLen+nonceLen {
		t.Fatalf("blob too short: %d", len(blob))
	}
}

func TestDecryptTruncatedBlob(t *testing.T) {
	if _, err := Decrypt([]byte("short"), "pw"); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("got %v, want ErrDecrypt", err)
	}
}

func TestDeleteMissingIsNil(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Delete(); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}
