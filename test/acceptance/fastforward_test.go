package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("fast-forward pull", func() {
	var tmpDir, originDir, cloneDir, scanRoot string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "autogitpull-ff-*")
		Expect(err).NotTo(HaveOccurred())
		originDir, cloneDir = newOriginAndClone(tmpDir)
		scanRoot = filepath.Join(tmpDir, "scan")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("fast-forwards a clone that is behind its remote", func() {
		// Advance origin via a second independent clone, so cloneDir is
		// strictly behind when autogitpull runs.
		pusherDir := filepath.Join(tmpDir, "pusher")
		runGit(tmpDir, "clone", originDir, pusherDir)
		writeFile(filepath.Join(pusherDir, "new.txt"), "new content\n")
		runGit(pusherDir, "add", "new.txt")
		runGit(pusherDir, "-c", "user.email=test@example.com", "-c", "user.name=test", "commit", "-m", "second commit")
		runGit(pusherDir, "push", "origin", "main")

		remoteHead := strings.TrimSpace(runGitOutput(originDir, "rev-parse", "main"))
		localHeadBefore := strings.TrimSpace(runGitOutput(cloneDir, "rev-parse", "HEAD"))
		Expect(localHeadBefore).NotTo(Equal(remoteHead))

		cmd := exec.Command(binaryPath, scanRoot,
			"--interval", "0s", "--silent",
			"--include-private", "--concurrency", "1")
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		localHeadAfter := strings.TrimSpace(runGitOutput(cloneDir, "rev-parse", "HEAD"))
		Expect(localHeadAfter).To(Equal(remoteHead))
		Expect(os.ReadFile(filepath.Join(cloneDir, "new.txt"))).To(BeEquivalentTo("new content\n"))
	})

	It("leaves an already up to date clone untouched", func() {
		headBefore := strings.TrimSpace(runGitOutput(cloneDir, "rev-parse", "HEAD"))

		cmd := exec.Command(binaryPath, scanRoot,
			"--interval", "0s", "--silent",
			"--include-private", "--concurrency", "1")
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		headAfter := strings.TrimSpace(runGitOutput(cloneDir, "rev-parse", "HEAD"))
		Expect(headAfter).To(Equal(headBefore))
	})
})
