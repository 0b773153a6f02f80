package actionlog

import "github.com/openagora/agora/core"

// Matches reports whether a record satisfies a filter. It is shared by the
// in-memory store and the mysql store, which pushes only the indexed fields
// into SQL and applies the message-level filters here.
func Matches(rec core.Record, f core.Filter) bool {
	if f.AfterSeq > 0 && rec.Seq <= f.AfterSeq {
		return false
	}
	if f.ActionKind != "" && rec.Action.Request.Name != f.ActionKind {
		return false
	}
	if f.SuccessOnly && rec.Action.Result.IsError {
		return false
	}

	needsSend := f.MessageType != "" || f.ProposalID != "" ||
		(f.AgentID != "" && f.Direction == core.DirectionReceived)

	var (
		params core.SendMessageParams
		msg    core.Message
		sendOK bool
	)
	if needsSend {
		if rec.Action.Request.Name != core.ActionSendMessage {
			return false
		}
		var err error
		params, err = core.SendMessageParamsOf(rec.Action)
		if err != nil {
			return false
		}
		sendOK = true
	}

	if f.AgentID != "" {
		switch f.Direction {
		case core.DirectionReceived:
			if !sendOK || params.ToAgentID != f.AgentID {
				return false
			}
		default:
			if rec.Action.AgentID != f.AgentID {
				return false
			}
		}
	}

	if f.MessageType != "" || f.ProposalID != "" {
		var err error
		msg, err = params.DecodedMessage()
		if err != nil {
			return false
		}
		if f.MessageType != "" && msg.Type() != f.MessageType {
			return false
		}
		if f.ProposalID != "" && proposalIDOf(msg) != f.ProposalID {
			return false
		}
	}
	return true
}

func proposalIDOf(msg core.Message) string {
	switch m := msg.(type) {
	case core.OrderProposal:
		return m.ID
	case core.Payment:
		return m.ProposalMessageID
	default:
		return ""
	}
}
