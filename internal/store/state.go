package store

import "github.com/calcvault/core/internal/domain"

// Typed accessors for the persisted state layout. Values default to
// their zero form when absent; read errors surface to the caller.

// BlockedUsers returns the persisted block list, in insertion order.
func (s *Store) BlockedUsers() ([]string, error) {
	var blocked []string
	if _, err := s.GetJSON(KeyBlocked, &blocked); err != nil {
		return nil, err
	}
	return blocked, nil
}

func (s *Store) SaveBlockedUsers(blocked []string) error {
	return s.PutJSON(KeyBlocked, blocked)
}

// Directory returns the persisted global user directory.
func (s *Store) Directory() ([]domain.DirectoryEntry, error) {
	var entries []domain.DirectoryEntry
	if _, err := s.GetJSON(KeyGlobalUsers, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) SaveDirectory(entries []domain.DirectoryEntry) error {
	return s.PutJSON(KeyGlobalUsers, entries)
}

// Contacts returns the denormalized dashboard cache. The engine never
// writes this; UI callers keep it current after each send/receive.
func (s *Store) Contacts() ([]domain.Contact, error) {
	var contacts []domain.Contact
	if _, err := s.GetJSON(KeyContacts, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (s *Store) SaveContacts(contacts []domain.Contact) error {
	return s.PutJSON(KeyContacts, contacts)
}

// Identity returns the persisted local username and avatar, both empty
// until account setup completes.
func (s *Store) Identity() (username, avatar string, err error) {
	data, ok, err := s.Get(KeyUsername)
	if err != nil {
		return "", "", err
	}
	if ok {
		username = string(data)
	}
	data, ok, err = s.Get(KeyAvatar)
	if err != nil {
		return "", "", err
	}
	if ok {
		avatar = string(data)
	}
	return username, avatar, nil
}

func (s *Store) SaveIdentity(username, avatar string) error {
	if err := s.Put(KeyUsername, []byte(username)); err != nil {
		return err
	}
	return s.Put(KeyAvatar, []byte(avatar))
}

// SubscriptionActive reports the premium flag, stored as the literal
// string "true".
func (s *Store) SubscriptionActive() (bool, error) {
	data, ok, err := s.Get(KeySubscription)
	if err != nil || !ok {
		return false, err
	}
	return string(data) == "true", nil
}

func (s *Store) ActivateSubscription() error {
	return s.Put(KeySubscription, []byte("true"))
}
