package auth

import "sort"

// Service is the Telegram allowlist. An empty allowlist admits everyone;
// the admin is always admitted.
type Service struct {
	adminID      int64
	allowedUsers map[int64]struct{}
}

func New(adminID int64, allowed []int64) *Service {
	s := &Service{adminID: adminID, allowedUsers: make(map[int64]struct{}, len(allowed))}
	for _, id := range allowed {
		s.allowedUsers[id] = struct{}{}
	}
	return s
}

func (s *Service) IsAllowed(userID int64) bool {
	if s.IsAdmin(userID) || len(s.allowedUsers) == 0 {
		return true
	}
	_, ok := s.allowedUsers[userID]
	return ok
}

func (s *Service) IsAdmin(userID int64) bool {
	return s.adminID != 0 && userID == s.adminID
}

func (s *Service) AdminID() int64 { return s.adminID }

// List returns the explicit allowlist in ascending order.
func (s *Service) List() []int64 {
	out := make([]int64, 0, len(s.allowedUsers))
	for id := range s.allowedUsers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
