package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("non-GitHub remote skip", func() {
	var tmpDir, originDir, cloneDir, scanRoot string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "autogitpull-skip-*")
		Expect(err).NotTo(HaveOccurred())
		originDir, cloneDir = newOriginAndClone(tmpDir)
		scanRoot = filepath.Join(tmpDir, "scan")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("does not pull a local-path remote without --include-private", func() {
		pusherDir := filepath.Join(tmpDir, "pusher")
		runGit(tmpDir, "clone", originDir, pusherDir)
		writeFile(filepath.Join(pusherDir, "new.txt"), "remote change\n")
		runGit(pusherDir, "add", "new.txt")
		runGit(pusherDir, "-c", "user.email=test@example.com", "-c", "user.name=test", "commit", "-m", "remote advances")
		runGit(pusherDir, "push", "origin", "main")
		remoteHead := strings.TrimSpace(runGitOutput(originDir, "rev-parse", "main"))
		localHeadBefore := strings.TrimSpace(runGitOutput(cloneDir, "rev-parse", "HEAD"))
		Expect(localHeadBefore).NotTo(Equal(remoteHead))

		cmd := exec.Command(binaryPath, scanRoot, "--interval", "0s", "--silent", "--concurrency", "1")
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		localHeadAfter := strings.TrimSpace(runGitOutput(cloneDir, "rev-parse", "HEAD"))
		Expect(localHeadAfter).To(Equal(localHeadBefore), "repo should be left untouched without --include-private")
	})
})

var _ = Describe("check-only and dry-run modes", func() {
	var tmpDir, originDir, cloneDir, scanRoot string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "autogitpull-checkonly-*")
		Expect(err).NotTo(HaveOccurred())
		originDir, cloneDir = newOriginAndClone(tmpDir)
		scanRoot = filepath.Join(tmpDir, "scan")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("never mutates the working tree under --check-only", func() {
		pusherDir := filepath.Join(tmpDir, "pusher")
		runGit(tmpDir, "clone", originDir, pusherDir)
		writeFile(filepath.Join(pusherDir, "new.txt"), "remote change\n")
		runGit(pusherDir, "add", "new.txt")
		runGit(pusherDir, "-c", "user.email=test@example.com", "-c", "user.name=test", "commit", "-m", "remote advances")
		runGit(pusherDir, "push", "origin", "main")

		headBefore := strings.TrimSpace(runGitOutput(cloneDir, "rev-parse", "HEAD"))

		cmd := exec.Command(binaryPath, scanRoot,
			"--interval", "0s", "--silent", "--concurrency", "1",
			"--include-private", "--check-only")
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		headAfter := strings.TrimSpace(runGitOutput(cloneDir, "rev-parse", "HEAD"))
		Expect(headAfter).To(Equal(headBefore))
	})
})
