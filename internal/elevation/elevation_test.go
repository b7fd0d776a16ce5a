package elevation

import "testing"

func TestToken_matchesProcess(t *testing.T) {
	if (Token{}).IsElevated() != isElevated() {
		t.Error("Token.IsElevated() disagrees with the process check")
	}
}
