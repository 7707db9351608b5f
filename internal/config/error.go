package config

import (
	"fmt"
)

// Error is returned for anything wrong with the store registry or the
// runtime settings. It is always fatal to a run.
type Error struct {
	Step  string
	File  string
	Index int
	Err   error
}

func (e Error) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("config error step:%q file:%q record:%d error:%v", e.Step, e.File, e.Index, e.Err)
	}
	return fmt.Sprintf("config error step:%q file:%q error:%v", e.Step, e.File, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}
