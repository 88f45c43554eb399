package git

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"aegis-hq/warden/pkg/config"
)

// AuthProvider produces the transport credentials for the policy
// repository.
type AuthProvider interface {
	GetAuth() (transport.AuthMethod, error)

	// Type names the method for log lines, never the credential.
	Type() string
}

// TokenAuth authenticates over HTTPS with an access token (GitHub,
// GitLab, Bitbucket).
type TokenAuth struct {
	token string
}

func NewTokenAuth(token string) *TokenAuth {
	return &TokenAuth{token: token}
}

// GetAuth returns basic auth carrying the token as the password.
// Token-accepting remotes ignore the username.
func (a *TokenAuth) GetAuth() (transport.AuthMethod, error) {
	if a.token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	return &http.BasicAuth{
		Username: "git",
		Password: a.token,
	}, nil
}

func (a *TokenAuth) Type() string {
	return "token"
}

// SSHAuth authenticates with an SSH private key, optionally
// passphrase-protected.
type SSHAuth struct {
	keyPath    string
	passphrase string
}

func NewSSHAuth(keyPath, passphrase string) *SSHAuth {
	return &SSHAuth{
		keyPath:    keyPath,
		passphrase: passphrase,
	}
}

// GetAuth loads the key file. A key readable by group or world is
// rejected before it is ever parsed.
func (a *SSHAuth) GetAuth() (transport.AuthMethod, error) {
	if a.keyPath == "" {
		return nil, fmt.Errorf("ssh key path cannot be empty")
	}

	info, err := os.Stat(a.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access SSH key file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
	}

	auth, err := ssh.NewPublicKeysFromFile("git", a.keyPath, a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}

	return auth, nil
}

func (a *SSHAuth) Type() string {
	return "ssh"
}

// NoAuth is the provider for public repositories.
type NoAuth struct{}

func NewNoAuth() *NoAuth {
	return &NoAuth{}
}

func (a *NoAuth) GetAuth() (transport.AuthMethod, error) {
	return nil, nil
}

func (a *NoAuth) Type() string {
	return "none"
}

// NewAuthProvider builds the provider named by the config. Supported
// methods: "token", "ssh", "none"; empty means none.
func NewAuthProvider(cfg *config.GitAuthConfig) (AuthProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config cannot be nil")
	}

	switch cfg.Method {
	case "token":
		if cfg.Token == "" {
			return nil, fmt.Errorf("token auth requires non-empty token")
		}
		return NewTokenAuth(cfg.Token), nil

	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires ssh_key_path")
		}
		return NewSSHAuth(cfg.SSHKeyPath, cfg.SSHKeyPassphrase), nil

	case "none", "":
		return NewNoAuth(), nil

	default:
		return nil, fmt.Errorf("unknown auth method: %s", cfg.Method)
	}
}
