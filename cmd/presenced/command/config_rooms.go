package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-presence/internal/rooms"
)

type RoomsConfig struct {
	Path string `json:"path,omitempty"`
}

func (c *RoomsConfig) Validate() error {
	el := errors.NewErrorList()

	if c.Path != "" {
		_, err := os.Stat(c.Path)
		if err != nil {
			el.Add(fmt.Errorf("invalid path %q: %w", c.Path, err))
		}
	}

	return el.Err()
}

// BuildFileStore loads room definitions when an asset path is
// configured. Without one it returns nil and every room admits joins.
func (c *RoomsConfig) BuildFileStore() (*rooms.FileStore, error) {
	if c.Path == "" {
		return nil, nil
	}
	return rooms.NewFileStore(c.Path)
}
