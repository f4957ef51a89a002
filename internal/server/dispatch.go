// internal/server/dispatch.go
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/cardmage/internal/auth"
	"github.com/jason-s-yu/cardmage/internal/lobby"
	"github.com/jason-s-yu/cardmage/internal/models"
	"github.com/jason-s-yu/cardmage/internal/protocol"
	"github.com/jason-s-yu/cardmage/internal/session"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownTag  = errors.New("unknown message tag")
	ErrLength      = errors.New("unexpected payload length")
	ErrNoContext   = errors.New("message needs a lobby or match context")
	ErrUnsupported = errors.New("deck building is not supported")

	errQuit = errors.New("client quit")
)

const (
	minUsernameLen = 3
	minPasswordLen = 4
	authTimeout    = 5 * time.Second
)

// dispatch routes one payload. Only a quit request ends the connection;
// everything else that goes wrong is logged and dropped.
func (s *Server) dispatch(ctx context.Context, p *session.Player, payload []byte) error {
	err := s.route(ctx, p, payload)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errQuit):
		return err
	case errors.Is(err, lobby.ErrNotFound), errors.Is(err, lobby.ErrFull), errors.Is(err, lobby.ErrNotReady):
		s.logger.WithField("session", p.SessionID).WithError(err).Info("lobby request refused")
	default:
		fields := logrus.Fields{"session": p.SessionID, "len": len(payload)}
		if len(payload) > 0 {
			fields["tag"] = payload[0]
		}
		s.logger.WithFields(fields).WithError(err).Warn("dropping message")
	}
	return nil
}

func expectLen(payload []byte, n int) error {
	if len(payload) != n {
		return fmt.Errorf("%w: got %d, want %d", ErrLength, len(payload), n)
	}
	return nil
}

func (s *Server) route(ctx context.Context, p *session.Player, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", ErrLength)
	}
	switch payload[0] {
	case protocol.CategoryServer:
		return s.routeServer(ctx, p, payload)
	case protocol.CategoryLobby:
		return s.routeLobby(p, payload)
	case protocol.CategoryGame:
		m, _ := p.Match()
		if m == nil {
			return fmt.Errorf("%w: game message outside a match", ErrNoContext)
		}
		m.Submit(p, payload)
		return nil
	case protocol.CategoryPlayer:
		return s.routePlayer(p, payload)
	}
	return fmt.Errorf("%w: category %d", ErrUnknownTag, payload[0])
}

func (s *Server) routeServer(ctx context.Context, p *session.Player, payload []byte) error {
	if len(payload) < protocol.LenTagPair {
		return fmt.Errorf("%w: server message without sub-tag", ErrLength)
	}
	switch payload[1] {
	case protocol.ServerQuit:
		if err := expectLen(payload, protocol.LenTagPair); err != nil {
			return err
		}
		return errQuit
	case protocol.ServerJoinLobby:
		if err := expectLen(payload, protocol.LenJoinLobby); err != nil {
			return err
		}
		r := protocol.NewReader(payload[protocol.LenTagPair:])
		id, _ := r.Int32()
		return s.Lobbies.Join(p, id)
	case protocol.ServerCreateLobby:
		if err := expectLen(payload, protocol.LenTagPair); err != nil {
			return err
		}
		_, err := s.Lobbies.Create(p)
		return err
	case protocol.ServerList:
		if err := expectLen(payload, protocol.LenTagPair); err != nil {
			return err
		}
		s.Lobbies.SendList(p)
		return nil
	case protocol.ServerLogin:
		return s.login(ctx, p, payload)
	case protocol.ServerTokenLogin:
		return s.tokenLogin(ctx, p, payload)
	}
	return fmt.Errorf("%w: server sub-tag %d", ErrUnknownTag, payload[1])
}

func (s *Server) routeLobby(p *session.Player, payload []byte) error {
	if len(payload) < protocol.LenTagPair {
		return fmt.Errorf("%w: lobby message without sub-tag", ErrLength)
	}
	if p.Context() != session.InLobby {
		return fmt.Errorf("%w: lobby sub-tag %d while %s", ErrNoContext, payload[1], p.Context())
	}
	switch payload[1] {
	case protocol.LobbyActionLeave:
		if err := expectLen(payload, protocol.LenTagPair); err != nil {
			return err
		}
		return s.Lobbies.Leave(p)
	case protocol.LobbyActionReady:
		if err := expectLen(payload, protocol.LenReady); err != nil {
			return err
		}
		return s.Lobbies.SetReady(p, payload[2] != 0)
	case protocol.LobbyActionStart:
		if err := expectLen(payload, protocol.LenTagPair); err != nil {
			return err
		}
		return s.Lobbies.Start(p)
	}
	return fmt.Errorf("%w: lobby sub-tag %d", ErrUnknownTag, payload[1])
}

func (s *Server) routePlayer(p *session.Player, payload []byte) error {
	if len(payload) < protocol.LenTagPair {
		return fmt.Errorf("%w: player message without sub-tag", ErrLength)
	}
	switch payload[1] {
	case protocol.PlayerChangeDeck:
		if err := expectLen(payload, protocol.LenChangeDeck); err != nil {
			return err
		}
		index := int(payload[2])
		if err := p.SelectDeck(index); err != nil {
			return err
		}
		p.Send(protocol.DeckChanged(index))
		return nil
	case protocol.PlayerAddDeck, protocol.PlayerRemoveDeck:
		return ErrUnsupported
	}
	return fmt.Errorf("%w: player sub-tag %d", ErrUnknownTag, payload[1])
}

// parseLogin reads [0,4,uLen,user,pLen,pass] and enforces the exact length
// and the minimum field sizes.
func parseLogin(payload []byte) (string, string, error) {
	if len(payload) < protocol.LenLoginHeader {
		return "", "", fmt.Errorf("%w: login with %d bytes", ErrLength, len(payload))
	}
	r := protocol.NewReader(payload[protocol.LenTagPair:])
	username, err := r.String()
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrLength, err)
	}
	password, err := r.String()
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrLength, err)
	}
	if r.Remaining() != 0 {
		return "", "", fmt.Errorf("%w: %d trailing bytes after login", ErrLength, r.Remaining())
	}
	if len(username) < minUsernameLen || len(password) < minPasswordLen {
		return "", "", fmt.Errorf("%w: username or password too short", ErrLength)
	}
	return username, password, nil
}

func (s *Server) login(ctx context.Context, p *session.Player, payload []byte) error {
	username, password, err := parseLogin(payload)
	if err != nil {
		return err
	}
	if p.Context() != session.Unattached {
		return session.ErrAlreadyAttached
	}
	actx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()
	id, err := s.auth.Authenticate(actx, username, password)
	if err != nil {
		p.Send(protocol.LoginReject(protocol.LoginWrongCredentials))
		if errors.Is(err, auth.ErrRejected) {
			s.logger.WithFields(logrus.Fields{"session": p.SessionID, "username": username}).Info("login rejected")
			return nil
		}
		return fmt.Errorf("login for %q: %w", username, err)
	}
	return s.accept(p, id)
}

func (s *Server) tokenLogin(ctx context.Context, p *session.Player, payload []byte) error {
	if len(payload) < protocol.LenTokenHeader {
		return fmt.Errorf("%w: token login with %d bytes", ErrLength, len(payload))
	}
	r := protocol.NewReader(payload[protocol.LenTagPair:])
	token, err := r.String()
	if err != nil || r.Remaining() != 0 {
		return fmt.Errorf("%w: malformed token login", ErrLength)
	}
	if p.Context() != session.Unattached {
		return session.ErrAlreadyAttached
	}
	if s.tokens == nil {
		p.Send(protocol.LoginReject(protocol.LoginBadToken))
		return errors.New("token login without a token issuer")
	}
	id, err := s.tokens.Verify(token)
	if err != nil {
		p.Send(protocol.LoginReject(protocol.LoginBadToken))
		s.logger.WithField("session", p.SessionID).WithError(err).Info("token login rejected")
		return nil
	}
	id.Decks = []models.Deck{models.DefaultDeck()}
	if s.users != nil {
		actx, cancel := context.WithTimeout(ctx, authTimeout)
		defer cancel()
		if u, err := s.users.GetUserByUsername(actx, id.Name); err == nil && u.ID == id.ID {
			id = u.Identity()
		}
	}
	return s.accept(p, id)
}

// accept binds id to p and answers with LoginAccept and a fresh token.
func (s *Server) accept(p *session.Player, id models.Identity) error {
	if err := p.Login(id); err != nil {
		p.Send(protocol.LoginReject(protocol.LoginWrongCredentials))
		return err
	}
	var token string
	if s.tokens != nil {
		t, err := s.tokens.Issue(id)
		if err != nil {
			s.logger.WithError(err).Error("failed to issue session token")
		} else {
			token = t
		}
	}
	p.Send(protocol.LoginAccept(models.Identity{ID: id.ID, Name: id.Name}, token))
	s.logger.WithFields(logrus.Fields{"session": p.SessionID, "player_id": id.ID, "name": id.Name}).Info("player logged in")
	return nil
}
