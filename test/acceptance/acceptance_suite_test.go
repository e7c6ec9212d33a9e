package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var binaryPath string

func TestAcceptance(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Acceptance Suite")
}

var _ = BeforeSuite(func() {
	if _, err := exec.LookPath("git"); err != nil {
		Skip("git binary not available on PATH")
	}

	_, thisFile, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	binaryPath = filepath.Join(projectRoot, "bin", "autogitpull-test")

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/autogitpull")
	cmd.Dir = projectRoot
	cmd.Env = append(cmd.Environ(), "CGO_ENABLED=0")
	output, err := cmd.CombinedOutput()
	Expect(err).NotTo(HaveOccurred(), "failed to build binary: %s", string(output))
})

func runGit(dir string, args ...string) {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	Expect(err).NotTo(HaveOccurred(), "git %v: %s", args, string(output))
}

func runGitOutput(dir string, args ...string) string {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	Expect(err).NotTo(HaveOccurred(), "git %v: %s", args, string(output))
	return string(output)
}

func writeFile(path, content string) {
	Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
}

// newOriginAndClone sets up a bare "origin" repo (outside tmpDir, so it
// is never itself picked up by discovery) and a working clone under
// tmpDir/scan/repo — the only entry under tmpDir/scan, which is the
// directory autogitpull is pointed at as its root. Returns (originDir,
// cloneDir).
func newOriginAndClone(tmpDir string) (string, string) {
	outside, err := os.MkdirTemp("", "autogitpull-origin-*")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { os.RemoveAll(outside) })

	originDir := filepath.Join(outside, "origin")
	Expect(os.MkdirAll(originDir, 0755)).To(Succeed())
	runGit(originDir, "init", "--bare", "-b", "main")

	seedDir := filepath.Join(outside, "seed")
	runGit(outside, "init", "-b", "main", seedDir)
	writeFile(filepath.Join(seedDir, "README.md"), "hello\n")
	runGit(seedDir, "add", "README.md")
	runGit(seedDir, "-c", "user.email=test@example.com", "-c", "user.name=test", "commit", "-m", "initial")
	runGit(seedDir, "remote", "add", "origin", originDir)
	runGit(seedDir, "push", "origin", "main")

	scanRoot := filepath.Join(tmpDir, "scan")
	Expect(os.MkdirAll(scanRoot, 0755)).To(Succeed())
	cloneDir := filepath.Join(scanRoot, "repo")
	runGit(scanRoot, "clone", originDir, cloneDir)
	runGit(cloneDir, "config", "user.email", "test@example.com")
	runGit(cloneDir, "config", "user.name", "test")

	return originDir, cloneDir
}
