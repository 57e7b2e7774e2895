package filesystem

import (
	"fmt"
	"os"
)

// Remover deletes local archive files. A missing file is an error.
type Remover struct{}

func NewRemover() *Remover {
	return &Remover{}
}

func (r *Remover) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
