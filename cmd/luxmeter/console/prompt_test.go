package console

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptText(t *testing.T) {
	assert.Equal(t, "reset? [Y/n]:", promptText("reset?", yesNoConstraints))
	assert.Equal(t, "reset? [N/y]:", promptText("reset?", noYesConstraints))
}

func TestMatchConstraint(t *testing.T) {
	assert.Equal(t, "n", matchConstraint("", noYesConstraints))
	assert.Equal(t, "y", matchConstraint(" Y ", noYesConstraints))
	assert.Equal(t, "n", matchConstraint("maybe", noYesConstraints))
	assert.Equal(t, "y", matchConstraint("maybe", yesNoConstraints))
}

func TestOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	w, errw := writer, errWriter
	SetOutput(&out, &errOut)
	defer SetOutput(w, errw)

	Printf("%d lux\n", 12)
	Errorf("bus %s", "busy")
	assert.Equal(t, "12 lux\n", out.String())
	assert.Contains(t, errOut.String(), "bus busy")
	assert.Contains(t, Format(errors.New("failed")), "failed")
}

func TestVerbose(t *testing.T) {
	ctx := SetVerbose(context.Background(), true)
	assert.True(t, IsVerbose(ctx))
	assert.False(t, IsVerbose(context.Background()))
}
