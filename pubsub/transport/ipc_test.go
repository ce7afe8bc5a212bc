package transport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPC_Connect_EmptyPath(t *testing.T) {
	i := &IPC{}
	_, err := i.Connect(context.Background())
	assert.Error(t, err)
}

func TestIPC_Connect_DialFailure(t *testing.T) {
	i := &IPC{Path: filepath.Join(t.TempDir(), "does-not-exist.sock")}
	_, err := i.Connect(context.Background())
	assert.Error(t, err)
}
