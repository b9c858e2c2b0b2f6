package hostaudio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestControlRejectsUnknownFunction(t *testing.T) {
	c := &Card{}
	err := c.Control(99, "")
	require.Error(t, err)
}

func TestControlStopIsNoOpWithoutAnActivePlayer(t *testing.T) {
	c := &Card{}
	require.NoError(t, c.Control(FunctionStop, ""))
}

func TestControlPlayReportsMissingFile(t *testing.T) {
	c := &Card{}
	err := c.Control(FunctionPlay, "/nonexistent/does-not-exist.raw")
	require.Error(t, err)
}
