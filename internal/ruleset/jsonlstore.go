package ruleset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONLStore is a single-process, file-backed Store. Community rows are
// kept as one JSON object per line in communitiesPath, rewritten in full
// on every PutCommunity (deployments this size don't need an append-only
// log with compaction); the standards document is kept as a single file.
type JSONLStore struct {
	mu             sync.Mutex
	communitiesPath string
	standardsPath   string

	communities map[string]Community
}

// NewJSONLStore opens (or creates) a file-backed store rooted at dir.
func NewJSONLStore(dir string) (*JSONLStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ruleset: creating store dir: %w", err)
	}
	s := &JSONLStore{
		communitiesPath: filepath.Join(dir, "communities.jsonl"),
		standardsPath:   filepath.Join(dir, "standards.yaml"),
		communities:     map[string]Community{},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONLStore) load() error {
	f, err := os.Open(s.communitiesPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ruleset: opening %s: %w", s.communitiesPath, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var c Community
		if err := json.Unmarshal(line, &c); err != nil {
			return fmt.Errorf("ruleset: decoding community row: %w", err)
		}
		s.communities[c.Name] = c
	}
	return sc.Err()
}

func (s *JSONLStore) flushLocked() error {
	tmp := s.communitiesPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("ruleset: creating %s: %w", tmp, err)
	}
	w := bufio.NewWriter(f)
	for _, c := range s.communities {
		b, err := json.Marshal(c)
		if err != nil {
			f.Close()
			return fmt.Errorf("ruleset: encoding community row: %w", err)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.communitiesPath)
}

func (s *JSONLStore) GetCommunity(name string) (Community, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.communities[name]
	return c, ok, nil
}

func (s *JSONLStore) PutCommunity(c Community) error {
	if c.Name == "" {
		return fmt.Errorf("ruleset: community name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.communities[c.Name] = c
	return s.flushLocked()
}

func (s *JSONLStore) ListCommunities() ([]Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Community, 0, len(s.communities))
	for _, c := range s.communities {
		out = append(out, c)
	}
	return out, nil
}

func (s *JSONLStore) GetStandardsYAML() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.standardsPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ruleset: reading %s: %w", s.standardsPath, err)
	}
	return string(b), nil
}

func (s *JSONLStore) PutStandardsYAML(yamlSrc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(s.standardsPath, []byte(yamlSrc), 0o644)
}
