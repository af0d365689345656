package service

import (
	"context"
	"log"
	"strings"
	"time"

	"butikpos/backend/internal/domain"
	"butikpos/backend/internal/store"
)

// Session carts are best-effort terminal state, not ledger data: a
// cache outage degrades to losing the in-progress cart, never a sale.

func (s *Service) SaveCart(ctx context.Context, cart domain.SessionCart) (domain.SessionCart, error) {
	cart.TerminalID = strings.TrimSpace(cart.TerminalID)
	if cart.TerminalID == "" {
		return domain.SessionCart{}, store.ErrInvalid
	}
	cart.SavedAt = time.Now().UTC()

	if err := s.carts.Save(ctx, &cart, s.cartTTL); err != nil {
		log.Printf("[service] WARN: failed to save session cart terminal=%s: %v", cart.TerminalID, err)
		return domain.SessionCart{}, err
	}
	return cart, nil
}

func (s *Service) LoadCart(ctx context.Context, terminalID string) (domain.SessionCart, bool, error) {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return domain.SessionCart{}, false, store.ErrInvalid
	}

	cart, found, err := s.carts.Load(ctx, terminalID)
	if err != nil {
		return domain.SessionCart{}, false, err
	}
	if !found || cart == nil {
		return domain.SessionCart{}, false, nil
	}
	return *cart, true, nil
}

func (s *Service) ClearCart(ctx context.Context, terminalID string) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return store.ErrInvalid
	}
	return s.carts.Clear(ctx, terminalID)
}
