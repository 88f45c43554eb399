package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestNewFileWatcher(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
		},
		{
			name: "valid path",
			path: "bundle.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw, err := NewFileWatcher(tt.path, 50*time.Millisecond, quietLogger())

			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFileWatcher() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				fw.Stop()
			}
		})
	}
}

func TestFileWatcher_ReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "bundle.yaml")
	if err := os.WriteFile(bundlePath, []byte("name: test\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(bundlePath, 20*time.Millisecond, quietLogger())
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- fw.Watch(ctx, func() error {
			reloads.Add(1)
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(bundlePath, []byte("name: changed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for reloads.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for reload callback")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := fw.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
	select {
	case err := <-watchDone:
		if err != nil {
			t.Errorf("Watch() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after Stop()")
	}
}

func TestFileWatcher_RejectsSecondWatch(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "bundle.yaml")
	if err := os.WriteFile(bundlePath, []byte("name: test\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(bundlePath, 20*time.Millisecond, quietLogger())
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go fw.Watch(ctx, func() error { return nil })
	time.Sleep(50 * time.Millisecond)

	if err := fw.Watch(ctx, func() error { return nil }); err != ErrAlreadyWatching {
		t.Errorf("second Watch() error = %v, want ErrAlreadyWatching", err)
	}
}

func TestFileWatcher_ShouldProcess(t *testing.T) {
	fw, err := NewFileWatcher("bundle.yaml", 20*time.Millisecond, quietLogger())
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{
			name:  "yaml write",
			event: fsnotify.Event{Name: "policies/bundle.yaml", Op: fsnotify.Write},
			want:  true,
		},
		{
			name:  "yml create",
			event: fsnotify.Event{Name: "policies/extra.yml", Op: fsnotify.Create},
			want:  true,
		},
		{
			name:  "chmod ignored",
			event: fsnotify.Event{Name: "policies/bundle.yaml", Op: fsnotify.Chmod},
			want:  false,
		},
		{
			name:  "hidden file ignored",
			event: fsnotify.Event{Name: "policies/.bundle.yaml.swp", Op: fsnotify.Write},
			want:  false,
		},
		{
			name:  "non-bundle extension ignored",
			event: fsnotify.Event{Name: "policies/README.md", Op: fsnotify.Write},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fw.shouldProcess(tt.event); got != tt.want {
				t.Errorf("shouldProcess(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	deadline := time.After(2 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for debounced callback")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Quiet period has passed; no further callbacks should land.
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback ran %d times after Stop(), want 0", got)
	}
}
