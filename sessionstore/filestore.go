package sessionstore

import (
	"io/ioutil"
	"os"
	"path/filepath"

	logging "github.com/ipfs/go-log/v2"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

var log = logging.Logger("session_store")

// SessionFile is the default file name under the gateway home directory.
const SessionFile = "session.toml"

type persistedSession struct {
	AccountID   string `toml:"accountId"`
	IsConnected string `toml:"isConnected"`
}

// FileStore persists the session as a small TOML document. Both keys are
// written in one file so they are read together and can never be observed
// half-updated across process restarts.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath resolves the session file under ~/.mintgate.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home dir")
	}
	return filepath.Join(home, ".mintgate", SessionFile), nil
}

func (f *FileStore) Save(accountID string) error {
	data, err := toml.Marshal(persistedSession{
		AccountID:   accountID,
		IsConnected: connectedFlag,
	})
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return errors.Wrap(err, "create session dir")
	}
	return ioutil.WriteFile(f.path, data, 0600)
}

func (f *FileStore) Load() (string, bool) {
	data, err := ioutil.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			// fail open to disconnected
			log.Warnf("read session file %s: %v", f.path, err)
		}
		return "", false
	}

	var session persistedSession
	if err := toml.Unmarshal(data, &session); err != nil {
		log.Warnf("session file %s corrupt, treating as absent: %v", f.path, err)
		return "", false
	}
	if session.AccountID == "" || session.IsConnected != connectedFlag {
		return "", false
	}
	return session.AccountID, true
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove session file")
	}
	return nil
}
