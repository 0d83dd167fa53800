package service

import (
	"github.com/rs/zerolog/log"
	"github.com/wricardo/mcp-training/dice421/game/bot"
	"github.com/wricardo/mcp-training/dice421/game/session"
)

// scheduleBot arms the room timer when the player to act is a bot.
// Callers hold the room lock.
func (s *roomServiceImpl) scheduleBot(room *session.Room) {
	room.CancelBot()

	m := room.Match
	if m == nil || m.Finished {
		return
	}
	cur, ok := m.CurrentPlayer()
	if !ok || !cur.IsBot {
		return
	}

	delay := room.Preset.Phase1Delay()
	if m.Phase == 2 {
		delay = room.Preset.Phase2Delay()
	}
	room.ArmBot(delay, func(gen uint64) {
		s.runBot(room, gen)
	})
}

// runBot plays one bot turn and re-arms the timer for the next one.
func (s *roomServiceImpl) runBot(room *session.Room, gen uint64) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("room_code", room.Meta.Code).Msg("bot turn panicked")
		}
	}()

	room.Lock()
	defer room.Unlock()
	if !room.BotCurrent(gen) {
		return
	}

	action, ok := bot.Decide(room.Match)
	if !ok {
		return
	}
	tr, err := s.engine.Apply(room.Match, action)
	if err != nil {
		log.Warn().Err(err).Str("room_code", room.Meta.Code).Str("bot", action.Username).Msg("bot action rejected")
		return
	}

	room.Match = tr.State
	room.Touch()
	s.broadcastState(room, tr.Anims)
	s.scheduleBot(room)
	if tr.State.Finished {
		logFinished(room)
	}
}
