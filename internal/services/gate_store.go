package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// MemoryGateStore keeps the timestamp in process memory only.
type MemoryGateStore struct {
	mu  sync.Mutex
	ms  int64
	set bool
}

func (s *MemoryGateStore) Load() (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ms, s.set, nil
}

func (s *MemoryGateStore) Save(ms int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ms, s.set = ms, true
	return nil
}

func (s *MemoryGateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ms, s.set = 0, false
	return nil
}

// FileGateStore 把时间戳以十进制整数写入文件，进程重启后仍然有效
type FileGateStore struct {
	path string
}

func NewFileGateStore(path string) *FileGateStore {
	return &FileGateStore{path: path}
}

func (s *FileGateStore) Load() (int64, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read gate file: %w", err)
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse gate file %s: %w", s.path, err)
	}
	return ms, true, nil
}

func (s *FileGateStore) Save(ms int64) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create gate dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(ms, 10)), 0o600); err != nil {
		return fmt.Errorf("write gate file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace gate file: %w", err)
	}
	return nil
}

func (s *FileGateStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove gate file: %w", err)
	}
	return nil
}
