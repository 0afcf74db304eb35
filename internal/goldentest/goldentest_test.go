package goldentest

import "testing"

// TestFixtures drives every Markdown fixture under testdata/ the way
// Zong's TestSexyAllTests drives test/*_test.md, covering the front end
// and the Lowering Engine end to end through one harness.
func TestFixtures(t *testing.T) {
	RunDir(t, "../../testdata")
}
