// Package credentials resolves portal credentials from, in order of
// precedence, explicit values, the process environment and a key=value file.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/user/poll-extractor/internal/entity"
)

const (
	UsernameKey = "ICLICKER_USERNAME"
	PasswordKey = "ICLICKER_PASSWORD"
)

// Credentials are the portal login.
type Credentials struct {
	Username string
	Password string
}

// Resolve fills each field from the first source that provides it.
func Resolve(username, password, file string) (Credentials, error) {
	creds := Credentials{Username: username, Password: password}

	if creds.Username == "" {
		creds.Username = os.Getenv(UsernameKey)
	}
	if creds.Password == "" {
		creds.Password = os.Getenv(PasswordKey)
	}

	if (creds.Username == "" || creds.Password == "") && file != "" {
		fileCreds, err := ReadFile(file)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Credentials{}, fmt.Errorf("%w: reading credentials file %s: %v", entity.ErrConfiguration, file, err)
		}
		if creds.Username == "" {
			creds.Username = fileCreds.Username
		}
		if creds.Password == "" {
			creds.Password = fileCreds.Password
		}
	}

	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, fmt.Errorf(
			"%w: username and password required; provide them via --username/--password, the %s/%s environment variables, or the credentials file %s",
			entity.ErrConfiguration, UsernameKey, PasswordKey, file)
	}
	return creds, nil
}

// ReadFile parses a key=value credentials file.
func ReadFile(path string) (Credentials, error) {
	if _, err := os.Stat(path); err != nil {
		return Credentials{}, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return Credentials{}, err
	}
	return Credentials{
		Username: strings.TrimSpace(v.GetString(UsernameKey)),
		Password: strings.TrimSpace(v.GetString(PasswordKey)),
	}, nil
}

// WriteFile stores credentials readable only by the owner. It refuses to
// replace an existing file unless force is set.
func WriteFile(path string, creds Credentials, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("credentials file already exists: %s", path)
	}
	content := fmt.Sprintf("# iClicker credentials\n%s=%s\n%s=%s\n",
		UsernameKey, creds.Username, PasswordKey, creds.Password)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}
