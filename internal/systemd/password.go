package systemd

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

const passwordFileName = ".witness_service_key"

// PasswordFilePath locates the service password sidecar under home.
func PasswordFilePath(home string) string {
	return filepath.Join(home, passwordFileName)
}

// WritePasswordFile stores the store password for unattended runs. The
// password is XOR-masked with a random salt so it is not greppable on
// disk; the file mode is the real protection.
func WritePasswordFile(home, password string) (string, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	pw := []byte(password)
	masked := make([]byte, len(pw))
	for i := range pw {
		masked[i] = pw[i] ^ salt[i%len(salt)]
	}
	path := PasswordFilePath(home)
	if err := os.WriteFile(path, append(salt, masked...), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// ReadPasswordFile recovers the password written by WritePasswordFile.
func ReadPasswordFile(home string) (string, error) {
	data, err := os.ReadFile(PasswordFilePath(home))
	if err != nil {
		return "", err
	}
	if len(data) < 32 {
		return "", fmt.Errorf("password file is truncated")
	}
	salt, masked := data[:32], data[32:]
	pw := make([]byte, len(masked))
	for i := range masked {
		pw[i] = masked[i] ^ salt[i%len(salt)]
	}
	return string(pw), nil
}
