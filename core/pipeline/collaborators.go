package pipeline

// UmountManager is a contract-only external collaborator: an IPC-backed
// queue that accumulates mount points via SendUmountable and flushes
// them with Commit once the pipeline finalizes. Both operations are
// best-effort — callers ignore errors. The real implementation (an IPC
// client talking to a long-lived umount daemon) lives outside this
// module; only the contract is specified here.
type UmountManager interface {
	SendUmountable(path string) error
	Commit() error
}

type noopUmountManager struct{}

func (noopUmountManager) SendUmountable(string) error { return nil }
func (noopUmountManager) Commit() error               { return nil }

// NoopUmountManager returns an UmountManager that drops every call,
// for runs where no external collaborator is wired (tests, dry runs).
func NoopUmountManager() UmountManager { return noopUmountManager{} }
