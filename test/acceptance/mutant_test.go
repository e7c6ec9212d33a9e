package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// parseMutantState parses the plain two-field text format the mutant
// controller persists: a header line of "<interval_seconds>
// <pull_timeout_seconds>" followed by "<path> <epoch>" lines.
func parseMutantState(raw []byte) (intervalSeconds, pullTimeoutSeconds int64, remoteCommitTime map[string]int64) {
	remoteCommitTime = make(map[string]int64)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	ExpectWithOffset(1, lines).NotTo(BeEmpty())

	header := strings.Fields(lines[0])
	ExpectWithOffset(1, header).To(HaveLen(2))
	var err error
	intervalSeconds, err = strconv.ParseInt(header[0], 10, 64)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	pullTimeoutSeconds, err = strconv.ParseInt(header[1], 10, 64)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		ExpectWithOffset(1, fields).To(HaveLen(2))
		epoch, err := strconv.ParseInt(fields[1], 10, 64)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		remoteCommitTime[fields[0]] = epoch
	}
	return
}

var _ = Describe("mutant adaptive mode", func() {
	var tmpDir, originDir, cloneDir, scanRoot, statePath string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "autogitpull-mutant-*")
		Expect(err).NotTo(HaveOccurred())
		originDir, cloneDir = newOriginAndClone(tmpDir)
		scanRoot = filepath.Join(tmpDir, "scan")
		statePath = filepath.Join(scanRoot, ".autogitpull.mutant")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("persists tuned interval/timeout state and gates unchanged remotes", func() {
		pusherDir := filepath.Join(tmpDir, "pusher")
		runGit(tmpDir, "clone", originDir, pusherDir)
		writeFile(filepath.Join(pusherDir, "new.txt"), "mutant run content\n")
		runGit(pusherDir, "add", "new.txt")
		runGit(pusherDir, "-c", "user.email=test@example.com", "-c", "user.name=test", "commit", "-m", "advance for mutant")
		runGit(pusherDir, "push", "origin", "main")
		remoteHead := strings.TrimSpace(runGitOutput(originDir, "rev-parse", "main"))

		cmd := exec.Command(binaryPath, scanRoot,
			"--interval", "0s", "--silent", "--concurrency", "1",
			"--include-private", "--mutant", "--confirm-mutant")
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		localHead := strings.TrimSpace(runGitOutput(cloneDir, "rev-parse", "HEAD"))
		Expect(localHead).To(Equal(remoteHead))

		raw, err := os.ReadFile(statePath)
		Expect(err).NotTo(HaveOccurred(), "mutant state file should be created at the scan root")

		intervalSeconds, pullTimeoutSeconds, remoteCommitTime := parseMutantState(raw)
		Expect(intervalSeconds).To(BeNumerically(">=", 5))
		Expect(pullTimeoutSeconds).To(BeNumerically(">=", 30))
		Expect(remoteCommitTime).NotTo(BeEmpty())

		firstRunState := remoteCommitTime

		// A second run with no further remote change should leave the
		// gated commit-time entries untouched: nothing new to learn.
		cmd = exec.Command(binaryPath, scanRoot,
			"--interval", "0s", "--silent", "--concurrency", "1",
			"--include-private", "--mutant", "--confirm-mutant")
		output, err = cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		raw, err = os.ReadFile(statePath)
		Expect(err).NotTo(HaveOccurred())
		_, _, secondRemoteCommitTime := parseMutantState(raw)
		Expect(secondRemoteCommitTime).To(Equal(firstRunState))
	})

	It("refuses to start with --mutant but without --confirm-mutant", func() {
		cmd := exec.Command(binaryPath, scanRoot,
			"--interval", "0s", "--silent", "--concurrency", "1",
			"--include-private", "--mutant")
		output, err := cmd.CombinedOutput()
		Expect(err).To(HaveOccurred(), "output: %s", string(output))
	})
})
