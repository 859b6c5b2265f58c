package tests_test

import (
	"fmt"
	"strings"

	"github.com/containerd/nerdctl/mod/tigron/test"
	"github.com/containerd/nerdctl/mod/tigron/tig"
)

// expectVerdict returns a comparator verifying the reported verdict.
func expectVerdict(verdict string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if !strings.Contains(stdout, verdict) {
			testing.Log(fmt.Sprintf("expected verdict %q not found in output:\n%s", verdict, stdout))
			testing.Fail()
		}
	}
}

// expectDetection returns a comparator verifying that a defect kind appears
// in the output.
func expectDetection(kind string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if !strings.Contains(stdout, kind) {
			testing.Log(fmt.Sprintf("expected detection %q not found in output:\n%s", kind, stdout))
			testing.Fail()
		}
	}
}

// expectNoDetection returns a comparator verifying that a defect kind does
// NOT appear in the output.
func expectNoDetection(kind string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if strings.Contains(stdout, kind) {
			testing.Log(fmt.Sprintf("unexpected detection %q found in output:\n%s", kind, stdout))
			testing.Fail()
		}
	}
}
