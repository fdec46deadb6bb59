package script

import "testing"

func TestParseSelection(t *testing.T) {
	t.Run("empty selects all", func(t *testing.T) {
		sel, err := ParseSelection("")
		if err != nil {
			t.Fatal(err)
		}
		for _, n := range []int{1, 5, 100} {
			if !sel.Includes(n) {
				t.Errorf("empty selection should include step %d", n)
			}
		}
	})

	t.Run("include list", func(t *testing.T) {
		sel, err := ParseSelection("3, 5")
		if err != nil {
			t.Fatal(err)
		}
		if !sel.Includes(3) || !sel.Includes(5) {
			t.Error("steps 3 and 5 should be included")
		}
		if sel.Includes(1) || sel.Includes(4) {
			t.Error("steps 1 and 4 should be excluded")
		}
	})

	t.Run("exclude list", func(t *testing.T) {
		sel, err := ParseSelection("e3,5")
		if err != nil {
			t.Fatal(err)
		}
		if sel.Includes(3) || sel.Includes(5) {
			t.Error("steps 3 and 5 should be excluded")
		}
		if !sel.Includes(1) || !sel.Includes(4) {
			t.Error("steps 1 and 4 should be included")
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, spec := range []string{"x", "0", "-1", "1,,2", "e"} {
			if _, err := ParseSelection(spec); err == nil {
				t.Errorf("ParseSelection(%q): expected error", spec)
			}
		}
	})
}

func TestSelectionWithJump(t *testing.T) {
	sel := Selection{}.WithJump(3)
	if sel.Includes(1) || sel.Includes(2) {
		t.Error("steps before the jump target should be skipped")
	}
	if !sel.Includes(3) || !sel.Includes(4) {
		t.Error("steps from the jump target on should run")
	}

	// Jump combines with an include list.
	base, err := ParseSelection("2,4")
	if err != nil {
		t.Fatal(err)
	}
	sel = base.WithJump(3)
	if sel.Includes(2) {
		t.Error("step 2 is selected but before the jump, should be skipped")
	}
	if !sel.Includes(4) {
		t.Error("step 4 is selected and after the jump, should run")
	}
}
