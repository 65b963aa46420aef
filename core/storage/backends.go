package storage

// TmpfsBackend and Ext4Backend are already fully mounted at
// construction time; Commit is a no-op for both.

type TmpfsBackend struct {
	Mount string
}

func (b *TmpfsBackend) Commit(bool) error   { return nil }
func (b *TmpfsBackend) MountPoint() string  { return b.Mount }
func (b *TmpfsBackend) Mode() string        { return "tmpfs" }

type Ext4Backend struct {
	Mount string
}

func (b *Ext4Backend) Commit(bool) error  { return nil }
func (b *Ext4Backend) MountPoint() string { return b.Mount }
func (b *Ext4Backend) Mode() string       { return "ext4" }
