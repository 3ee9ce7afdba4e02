package ui

import (
	"math/bits"
	"testing"
)

func TestCubeEdges(t *testing.T) {
	seen := make(map[[2]int]bool)
	for _, e := range cubeEdges {
		if bits.OnesCount(uint(e[0]^e[1])) != 1 {
			t.Errorf("edge %v joins corners that differ in more than one axis", e)
		}
		if seen[e] {
			t.Errorf("edge %v listed twice", e)
		}
		seen[e] = true
		if d := cubeCorner(e[0]).Sub(cubeCorner(e[1])).Len(); d != 2 {
			t.Errorf("edge %v has length %f, expected 2", e, d)
		}
	}
}

func TestToolbarActions(t *testing.T) {
	if (ToolbarActions{}).Any() {
		t.Error("empty actions reported a press")
	}
	if !(ToolbarActions{NextMaterial: true}).Any() {
		t.Error("material press not reported")
	}
	if toggleText(true, "Resume", "Pause") != "Resume" || toggleText(false, "Resume", "Pause") != "Pause" {
		t.Error("toggleText picked the wrong label")
	}
}
