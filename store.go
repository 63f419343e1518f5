package construct

// Store is the session contract the admin handlers depend on.
// storage.MemoryStore is the implementation.
type Store interface {
	CreateSession(identifier string) string
	GetIdentifier(token string) (string, bool)
	SessionValid(token string) bool
	RefreshSession(token string) bool
	Revoke(token string) bool
}
