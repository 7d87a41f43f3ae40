package telegram

import (
	"log"

	"github.com/xivitoo/XiPadelGranada/internal/services"
)

// Evaluator delivers the post-match level poll. It is the scheduler's
// trigger handler: one run per match, an hour after the match ends.
type Evaluator struct {
	client   sender
	matchSvc *services.MatchService
}

func NewEvaluator(client sender, matchSvc *services.MatchService) *Evaluator {
	return &Evaluator{client: client, matchSvc: matchSvc}
}

// Run prompts every roster member as of now, not as of match creation. A
// failed delivery (blocked bot, closed chat) is logged and skipped so the
// rest of the roster still gets asked.
func (e *Evaluator) Run(matchID uint) {
	match, err := e.matchSvc.Get(matchID)
	if err != nil {
		log.Printf("[evaluator] match %d: %v", matchID, err)
		return
	}
	if match.Cancelled {
		return
	}

	for _, entry := range match.Roster {
		_, err := e.client.SendMessage(entry.PlayerID,
			"¿El nivel del partido coincidió con lo indicado?",
			"", EvalPromptKeyboard(matchID))
		if err != nil {
			log.Printf("[evaluator] match %d: send to %d: %v", matchID, entry.PlayerID, err)
			continue
		}
	}
}
