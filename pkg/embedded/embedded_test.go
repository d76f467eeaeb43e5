package embedded

import (
	"errors"
	"testing"
	"testing/fstest"
)

func reset() {
	dataFS = nil
	initialized = false
}

// TestIsInitialized 测试初始化状态检测
func TestIsInitialized(t *testing.T) {
	reset()
	defer reset()

	if IsInitialized() {
		t.Error("Expected IsInitialized() to return false before Init()")
	}

	Init(fstest.MapFS{})

	if !IsInitialized() {
		t.Error("Expected IsInitialized() to return true after Init()")
	}
}

// TestReadFileNotInitialized 测试未初始化时调用 ReadFile
func TestReadFileNotInitialized(t *testing.T) {
	reset()

	_, err := ReadFile("data/engine.yaml")
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if Exists("data/engine.yaml") {
		t.Error("Expected Exists() to return false before Init()")
	}
}

// TestReadFile 测试路径标准化与读取
func TestReadFile(t *testing.T) {
	reset()
	defer reset()

	Init(fstest.MapFS{
		"data/engine.yaml": &fstest.MapFile{Data: []byte("width: 640\n")},
	})

	for _, path := range []string{"data/engine.yaml", "./data/engine.yaml"} {
		data, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%q) error: %v", path, err)
		}
		if string(data) != "width: 640\n" {
			t.Errorf("ReadFile(%q) = %q", path, data)
		}
	}

	if !Exists("data/engine.yaml") {
		t.Error("Exists() should report embedded file")
	}
	if Exists("data/missing.yaml") {
		t.Error("Exists() should not report missing file")
	}
}

// TestReadFileInvalidPrefix 测试无效路径前缀
func TestReadFileInvalidPrefix(t *testing.T) {
	reset()
	defer reset()
	Init(fstest.MapFS{})

	_, err := ReadFile("assets/logo.png")
	if err == nil {
		t.Fatal("Expected error for invalid path prefix")
	}
	if err.Error() != "unknown resource path prefix: assets/logo.png (must start with 'data/')" {
		t.Errorf("Unexpected error message: %v", err)
	}
}
