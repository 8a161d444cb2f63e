package clip

// headlessBackend is a no-op clipboard backend for environments without a
// display server (headless Linux servers, containers, etc.).
// Its token never changes, so a watcher on it never reports a change.
type headlessBackend struct{}

func (headlessBackend) Name() string                 { return "headless (no-op)" }
func (headlessBackend) ChangeToken() (uint64, error) { return 0, nil }
func (headlessBackend) ReadText() (string, error)    { return "", nil }
func (headlessBackend) Close()                       {}
