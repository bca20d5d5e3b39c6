package tierhint

import (
	"testing"
	"time"

	"github.com/arbywatch/arbywatch/internal/tier"
)

// 14:00 UTC
var testNow = time.Date(2023, 11, 18, 14, 30, 0, 0, time.UTC)

func TestExtract(t *testing.T) {
	page := `<html><body>
<div>1300 &#8226; Stofler, Lua (C tier)</div>
<div>1400 &#8226; Hydron, Sedna (S tier)</div>
<div>1500 &#8226; Tessera, Venus (D tier)</div>
</body></html>`

	got, ok := Extract(page, testNow)
	if !ok {
		t.Fatal("expected a hint for 1400")
	}
	if got != tier.S {
		t.Errorf("Extract = %v, want S", got)
	}
}

func TestExtractNoBulletSpacing(t *testing.T) {
	page := `<html><body><p>1400&#8226; Casta, Ceres (a tier)</p></body></html>`
	got, ok := Extract(page, testNow)
	if !ok || got != tier.A {
		t.Errorf("Extract = %v, %v, want A, true", got, ok)
	}
}

func TestExtractHourMissing(t *testing.T) {
	page := `<html><body><p>0900 &#8226; Akkad, Eris (S tier)</p></body></html>`
	if _, ok := Extract(page, testNow); ok {
		t.Error("expected no hint when the current hour is absent")
	}
}

func TestExtractLineWithoutMarker(t *testing.T) {
	page := `<html><body><p>1400 &#8226; Akkad, Eris</p></body></html>`
	if _, ok := Extract(page, testNow); ok {
		t.Error("expected no hint when the row carries no marker")
	}
}

func TestExtractIgnoresScripts(t *testing.T) {
	page := `<html><head><script>var x = "1400 • fake (F tier)";</script></head>
<body><p>1400 &#8226; Hydron, Sedna (S tier)</p></body></html>`
	got, ok := Extract(page, testNow)
	if !ok || got != tier.S {
		t.Errorf("Extract = %v, %v, want S, true", got, ok)
	}
}
