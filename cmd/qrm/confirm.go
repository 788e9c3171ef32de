package main

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/alfredjeanlab/quickreply/internal/ui"
)

var errAborted = errors.New("aborted")

// confirmFunc asks a yes/no question. Swapped out in tests.
var confirmFunc = promptConfirm

func promptConfirm(label string) (bool, error) {
	if !ui.IsInteractive() {
		return false, fmt.Errorf("%s: refusing without a terminal, pass --yes", label)
	}
	p := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// confirm returns errAborted unless --yes was given or the user agrees.
func confirm(label string) error {
	if assumeYes {
		return nil
	}
	ok, err := confirmFunc(label)
	if err != nil {
		return err
	}
	if !ok {
		return errAborted
	}
	return nil
}
