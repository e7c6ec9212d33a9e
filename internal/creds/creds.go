// Package creds implements the Credential Resolver (C5). Because the Git
// Capability Layer shells out to the system git binary rather than
// linking a Git library, "calling back with credentials" takes the shape
// native to that binary: environment variables that steer its own
// credential machinery (GIT_SSH_COMMAND for key-based auth, GIT_ASKPASS
// for a helper program that answers username/password prompts). gitexec's
// Repo carries the Settings that feed Resolve, calls it for every
// operation that may touch the network (ls-remote, fetch), and merges the
// result into cmd.Env.
package creds

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// sshLikeRemote matches a scp-style remote such as git@github.com:org/repo,
// which net/url cannot parse as a URL.
var sshLikeRemote = regexp.MustCompile(`^([^@/]+)@[^:/]+:`)

// UsernameFromURL extracts the username embedded in a remote URL, mirroring
// libgit2's username_from_url parameter to its credential callback: present
// for both scp-style ssh remotes (git@host:path) and URL-style remotes with
// embedded userinfo (https://user@host/path). Returns "" when the remote
// carries no username, in which case Resolve falls through to its other
// sources.
func UsernameFromURL(raw string) string {
	if m := sshLikeRemote.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return ""
	}
	return u.User.Username()
}

// AllowedTypes is a bitmask mirroring the Git library's
// credential-request flags from spec.md §4.4's callback contract.
type AllowedTypes int

const (
	AllowSSHKey AllowedTypes = 1 << iota
	AllowUsername
	AllowUserPass
)

// Settings is the subset of configuration the resolver needs: explicit
// key paths, a credentials file, and a username hint (typically parsed
// out of the remote URL).
type Settings struct {
	SSHPublicKey  string
	SSHPrivateKey string
	CredentialFile string
	Username      string
}

// Env is a resolved credential environment: a set of environment
// variable KEY=VALUE pairs to overlay onto a git subprocess's
// environment. The "library default credential" fallback of step 6 is
// an empty, zero-value Env.
type Env struct {
	Vars []string
}

// Resolve implements the six-step priority list from spec.md §4.4.
func Resolve(allowed AllowedTypes, s Settings) Env {
	if allowed&AllowSSHKey != 0 && s.SSHPrivateKey != "" && s.Username != "" {
		return sshKeyEnv(s.SSHPrivateKey, s.SSHPublicKey)
	}
	if allowed&AllowSSHKey != 0 && s.Username != "" {
		return sshAgentEnv()
	}
	if allowed&AllowUsername != 0 && s.Username != "" {
		return Env{Vars: []string{"GIT_USERNAME=" + s.Username}}
	}
	if allowed&AllowUserPass != 0 && s.CredentialFile != "" {
		if user, pass, err := readCredentialFile(s.CredentialFile); err == nil {
			return userPassEnv(user, pass)
		}
	}
	if allowed&AllowUserPass != 0 {
		if user, pass, ok := envCredentials(); ok {
			return userPassEnv(user, pass)
		}
	}
	return Env{}
}

func sshKeyEnv(privateKey, publicKey string) Env {
	cmd := fmt.Sprintf("ssh -i %s -o IdentitiesOnly=yes -o StrictHostKeyChecking=accept-new", shellQuote(privateKey))
	_ = publicKey // explicit pubkey path is informational; ssh derives it from the private key file
	return Env{Vars: []string{"GIT_SSH_COMMAND=" + cmd}}
}

func sshAgentEnv() Env {
	// Relying on an already-running ssh-agent means no override is
	// needed beyond ensuring key-based auth isn't short-circuited by a
	// stale GIT_SSH_COMMAND from a previous resolution.
	return Env{}
}

func userPassEnv(user, pass string) Env {
	return Env{Vars: []string{
		"GIT_ASKPASS=" + askpassHelperPath(),
		"AUTOGITPULL_CRED_USER=" + user,
		"AUTOGITPULL_CRED_PASS=" + pass,
	}}
}

// askpassHelperPath returns the path to the running autogitpull binary
// itself, invoked as `autogitpull credential-helper` (see internal/cli).
// Git calls GIT_ASKPASS with a single "Username for ..." / "Password for
// ..." prompt argument; the credential-helper subcommand answers from
// AUTOGITPULL_CRED_USER / AUTOGITPULL_CRED_PASS.
func askpassHelperPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "autogitpull"
	}
	return exe
}

func readCredentialFile(path string) (user, pass string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() && len(lines) < 2 {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if len(lines) < 2 {
		return "", "", fmt.Errorf("creds: %s does not contain two lines", path)
	}
	return lines[0], lines[1], nil
}

func envCredentials() (user, pass string, ok bool) {
	user = os.Getenv("GIT_USERNAME")
	pass = os.Getenv("GIT_PASSWORD")
	return user, pass, user != "" && pass != ""
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// AskpassRespond implements the `credential-helper` subcommand's body:
// given the prompt git passes as argv[1], answer with the username or
// password captured from the environment by userPassEnv.
func AskpassRespond(prompt string) (string, bool) {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "username"):
		return os.Getenv("AUTOGITPULL_CRED_USER"), true
	case strings.Contains(lower, "password"):
		return os.Getenv("AUTOGITPULL_CRED_PASS"), true
	default:
		return "", false
	}
}
