package main

import (
	"errors"
	"testing"
)

func TestConfirm(t *testing.T) {
	savedYes, savedFn := assumeYes, confirmFunc
	t.Cleanup(func() { assumeYes, confirmFunc = savedYes, savedFn })

	asked := 0
	answer := func(ok bool, err error) func(string) (bool, error) {
		return func(string) (bool, error) { asked++; return ok, err }
	}

	for _, tc := range []struct {
		name    string
		yes     bool
		fn      func(string) (bool, error)
		want    error
		prompts int
	}{
		{"--yes skips the prompt", true, answer(false, nil), nil, 0},
		{"accepted", false, answer(true, nil), nil, 1},
		{"declined", false, answer(false, nil), errAborted, 1},
		{"prompt failure", false, answer(false, errBoom), errBoom, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			asked = 0
			assumeYes, confirmFunc = tc.yes, tc.fn
			if err := confirm("Delete"); !errors.Is(err, tc.want) {
				t.Errorf("confirm() = %v, want %v", err, tc.want)
			}
			if asked != tc.prompts {
				t.Errorf("prompted %d times, want %d", asked, tc.prompts)
			}
		})
	}
}

var errBoom = errors.New("boom")
