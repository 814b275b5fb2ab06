package model

import (
	"strings"
	"time"

	uuid "github.com/satori/go.uuid"
)

type TaskAction int

const (
	ActionUpdateView TaskAction = iota
	ActionUpdateSearch
)

// Task tracks the progress of one view rebuild.
type Task struct {
	ID          string
	ActiveSince time.Time
	Action      TaskAction

	Ddfn   string
	DBName string

	UpdatedAt       time.Time
	ProcessingTotal int // total number of things to process
	Processed       int // number of things processed
}

func NewTask(action TaskAction, dbName string, ddfn DesignDocFn) *Task {
	return &Task{
		ID:          uuid.NewV4().String(),
		ActiveSince: time.Now(),
		Action:      action,
		Ddfn:        ddfn.String(),
		DBName:      dbName,
	}
}

func (t Task) String() string {
	var b strings.Builder
	b.WriteString("<Task ID=")
	b.WriteString(t.ID)
	b.WriteString(" db=")
	b.WriteString(t.DBName)
	b.WriteString(" ddfn=\"")
	b.WriteString(t.Ddfn)
	b.WriteString("\"")
	b.WriteString(">")
	return b.String()
}
