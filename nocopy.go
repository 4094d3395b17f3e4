package async

// noCopy is embedded in types that must never be copied after first
// use (Mutex, WaitGroup) to let `go vet`'s copylocks check catch
// accidental copies. It implements sync.Locker purely as a marker;
// neither method does anything.
type noCopy struct{}

// Lock is a no-op implementation of sync.Locker.Lock.
func (*noCopy) Lock() {}

// Unlock is a no-op implementation of sync.Locker.Unlock.
func (*noCopy) Unlock() {}
