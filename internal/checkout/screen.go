package checkout

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// CodeScreen is a bloom filter over known coupon codes. It rejects garbage
// codes before they reach the database; a positive answer still needs a
// real lookup since bloom filters can report false positives.
type CodeScreen struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

func NewCodeScreen(expectedCodes uint) *CodeScreen {
	if expectedCodes == 0 {
		expectedCodes = 1000
	}
	return &CodeScreen{
		filter: bloom.NewWithEstimates(expectedCodes, 0.01),
	}
}

func (s *CodeScreen) Load(codes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range codes {
		s.filter.AddString(code)
	}
}

func (s *CodeScreen) Add(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.AddString(code)
}

func (s *CodeScreen) MightContain(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.TestString(code)
}
