package rfcomm

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bear-monitor/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseDevices(t *testing.T) {
	devs, err := ParseDevices("98:D3:31:F5:1A:2B,BEAR-ESP32,/dev/rfcomm0; 00:11:22:33:44:55, Other ,/dev/rfcomm1;")
	require.NoError(t, err)
	require.Len(t, devs, 2)
	assert.Equal(t, "BEAR-ESP32", devs[0].Name)
	assert.Equal(t, "/dev/rfcomm0", devs[0].Path)
	assert.Equal(t, "Other", devs[1].Name)

	_, err = ParseDevices("98:D3:31:F5:1A:2B,/dev/rfcomm0")
	assert.Error(t, err)

	devs, err = ParseDevices("")
	require.NoError(t, err)
	assert.Empty(t, devs)
}

func TestTransport_Available(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rfcomm0")

	tr := New([]DeviceConfig{{Device: transport.Device{Address: "A"}, Path: path}}, nil, zap.NewNop())
	_, ok := tr.Provider()()
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	_, ok = tr.Provider()()
	assert.True(t, ok)
}

type lineCollector struct {
	mu    sync.Mutex
	lines []string
}

func (c *lineCollector) add(line string) {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
}

func (c *lineCollector) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func TestConn_DeliversLines(t *testing.T) {
	pr, pw := io.Pipe()
	tr := New([]DeviceConfig{{Device: transport.Device{Address: "98:D3:31:F5:1A:2B", Name: "BEAR"}, Path: "/dev/rfcomm0"}},
		func(string) (io.ReadCloser, error) { return pr, nil }, zap.NewNop())

	devs, err := tr.BondedDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devs, 1)

	c, err := tr.Connect(context.Background(), "98:d3:31:f5:1a:2b")
	require.NoError(t, err)

	var got lineCollector
	sub, err := c.Subscribe(got.add)
	require.NoError(t, err)

	_, err = pw.Write([]byte("BPM: 72\r\nSpO2: 9"))
	require.NoError(t, err)
	_, err = pw.Write([]byte("7%\n"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(got.get()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"BPM: 72", "SpO2: 97%"}, got.get())

	sub.Remove()
	require.NoError(t, c.Disconnect())
	require.NoError(t, c.Disconnect())

	_, err = c.Subscribe(got.add)
	assert.Error(t, err)
}

func TestConn_DoneOnStreamEnd(t *testing.T) {
	pr, pw := io.Pipe()
	tr := New([]DeviceConfig{{Device: transport.Device{Address: "A", Name: "BEAR"}, Path: "/dev/rfcomm0"}},
		func(string) (io.ReadCloser, error) { return pr, nil }, zap.NewNop())

	c, err := tr.Connect(context.Background(), "A")
	require.NoError(t, err)
	var got lineCollector
	_, err = c.Subscribe(got.add)
	require.NoError(t, err)

	_, err = pw.Write([]byte("Battery: 80%\n"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after EOF")
	}
	assert.Equal(t, []string{"Battery: 80%"}, got.get())
	require.NoError(t, c.Disconnect())
}

func TestConn_DoneOnDisconnect(t *testing.T) {
	pr, _ := io.Pipe()
	tr := New([]DeviceConfig{{Device: transport.Device{Address: "A"}, Path: "/dev/rfcomm0"}},
		func(string) (io.ReadCloser, error) { return pr, nil }, zap.NewNop())

	c, err := tr.Connect(context.Background(), "A")
	require.NoError(t, err)
	require.NoError(t, c.Disconnect())

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed after Disconnect")
	}
}

func TestTransport_ConnectErrors(t *testing.T) {
	tr := New([]DeviceConfig{{Device: transport.Device{Address: "A"}, Path: "/dev/rfcomm0"}},
		func(string) (io.ReadCloser, error) { return nil, errors.New("permission denied") }, zap.NewNop())

	_, err := tr.Connect(context.Background(), "B")
	assert.ErrorIs(t, err, transport.ErrNoDevice)

	_, err = tr.Connect(context.Background(), "A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
