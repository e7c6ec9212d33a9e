package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("dirty working tree", func() {
	var tmpDir, originDir, cloneDir, scanRoot string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "autogitpull-dirty-*")
		Expect(err).NotTo(HaveOccurred())
		originDir, cloneDir = newOriginAndClone(tmpDir)
		scanRoot = filepath.Join(tmpDir, "scan")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("refuses to pull over uncommitted local changes without --force-pull", func() {
		pusherDir := filepath.Join(tmpDir, "pusher")
		runGit(tmpDir, "clone", originDir, pusherDir)
		writeFile(filepath.Join(pusherDir, "new.txt"), "remote change\n")
		runGit(pusherDir, "add", "new.txt")
		runGit(pusherDir, "-c", "user.email=test@example.com", "-c", "user.name=test", "commit", "-m", "remote advances")
		runGit(pusherDir, "push", "origin", "main")

		writeFile(filepath.Join(cloneDir, "README.md"), "local edit, never committed\n")

		cmd := exec.Command(binaryPath, scanRoot,
			"--interval", "0s", "--silent",
			"--include-private", "--concurrency", "1")
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		content, readErr := os.ReadFile(filepath.Join(cloneDir, "README.md"))
		Expect(readErr).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("local edit, never committed\n"))

		status := runGitOutput(cloneDir, "status", "--porcelain")
		Expect(strings.TrimSpace(status)).NotTo(BeEmpty())
	})

	It("hard-resets over local changes when --force-pull --include-private --confirm-alert is set", func() {
		pusherDir := filepath.Join(tmpDir, "pusher")
		runGit(tmpDir, "clone", originDir, pusherDir)
		writeFile(filepath.Join(pusherDir, "new.txt"), "remote change\n")
		runGit(pusherDir, "add", "new.txt")
		runGit(pusherDir, "-c", "user.email=test@example.com", "-c", "user.name=test", "commit", "-m", "remote advances")
		runGit(pusherDir, "push", "origin", "main")
		remoteHead := strings.TrimSpace(runGitOutput(originDir, "rev-parse", "main"))

		writeFile(filepath.Join(cloneDir, "README.md"), "local edit, will be discarded\n")

		cmd := exec.Command(binaryPath, scanRoot,
			"--interval", "0s", "--silent", "--concurrency", "1",
			"--include-private", "--force-pull", "--confirm-alert")
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		localHead := strings.TrimSpace(runGitOutput(cloneDir, "rev-parse", "HEAD"))
		Expect(localHead).To(Equal(remoteHead))
	})
})
