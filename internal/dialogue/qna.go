package dialogue

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/kb"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/validate"
)

// #region qna
var questionWords = map[string]bool{
	"what": true, "how": true, "when": true, "where": true, "why": true, "who": true,
	"which": true, "can": true, "could": true, "do": true, "does": true, "is": true,
	"are": true, "will": true, "would": true, "should": true, "may": true,
}

var doneWords = []string{
	"that's all", "thats all", "that's it", "nothing", "no more", "i'm good", "im good",
	"all set", "bye", "goodbye", "no questions",
}

func isQuestion(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if strings.Contains(text, "?") && len(words) >= 2 {
		return true
	}
	return len(words) >= 3 && questionWords[strings.Trim(words[0], ",.!")]
}

// offerQnA asks whether the caller has questions, or ends the call when the
// budget is spent.
func (e *Engine) offerQnA(t *turn) error {
	if t.st.QnARemaining <= 0 {
		return e.finishCall(t)
	}
	t.say(e.prompts.Render(PromptQnAOffer))
	return nil
}

func (e *Engine) handleQnAOffer(ctx context.Context, t *turn) error {
	st := t.st
	if isQuestion(t.utterance) {
		return e.answer(ctx, t)
	}
	key := session.RetryKey{Stage: session.QnAOffer}
	switch validate.YesNo(t.utterance) {
	case validate.Yes:
		delete(st.Retries, key)
		if err := e.transition(t, session.QnAAsk); err != nil {
			return err
		}
		t.say(e.prompts.Render(PromptQnAPrompt))
		t.long = true
		return nil
	case validate.No:
		return e.finishCall(t)
	}
	if st.Retries.Bump(key, e.policy.MaxRetries) {
		return e.finishCall(t)
	}
	t.say(e.prompts.Render(PromptQnAOffer))
	return nil
}

func (e *Engine) handleQnAAsk(ctx context.Context, t *turn) error {
	st := t.st
	key := session.RetryKey{Stage: session.QnAAsk}
	if t.utterance == "" {
		if st.Retries.Bump(key, e.policy.MaxRetries) {
			return e.finishCall(t)
		}
		t.say(e.prompts.Render(PromptQnAPrompt))
		t.long = true
		return nil
	}
	if !isQuestion(t.utterance) {
		if validate.HasAny(t.utterance, doneWords) {
			return e.finishCall(t)
		}
		switch validate.YesNo(t.utterance) {
		case validate.No:
			return e.finishCall(t)
		case validate.Yes:
			t.say(e.prompts.Render(PromptQnAPrompt))
			t.long = true
			return nil
		}
	}
	return e.answer(ctx, t)
}

// answer looks the question up, spends one unit of budget and either invites
// a follow-up or ends the call.
func (e *Engine) answer(ctx context.Context, t *turn) error {
	st := t.st
	delete(st.Retries, session.RetryKey{Stage: st.Stage})
	if st.Stage == session.QnAOffer {
		if err := e.transition(t, session.QnAAsk); err != nil {
			return err
		}
	}
	t.say(e.lookup(ctx, t))
	st.QnARemaining--
	if st.QnARemaining <= 0 {
		return e.finishCall(t)
	}
	t.say(e.prompts.Render(PromptQnAFollowup))
	t.long = true
	return nil
}

func (e *Engine) lookup(ctx context.Context, t *turn) string {
	var (
		snips []kb.Snippet
		err   error
	)
	boundedCall(ctx, e.policy.KBTimeout, func(ctx context.Context) {
		snips, err = e.kb.Search(ctx, t.utterance, kb.MaxAnswerSnippets)
	})
	if err != nil {
		e.log.Warn("knowledge base search failed", zap.String("session", t.st.SessionID), zap.Error(err))
	}
	text, cites := kb.FormatAnswer(snips, e.policy.SnippetChars)
	if text == "" {
		return e.prompts.Render(PromptQnAFallback)
	}
	t.citations = cites
	return text
}

func (e *Engine) finishCall(t *turn) error {
	if err := e.transition(t, session.Done); err != nil {
		return err
	}
	t.say(e.prompts.Render(PromptQnAWrap))
	t.say(e.prompts.Render(PromptDone))
	t.long = false
	return nil
}

// handleDone re-emits the closing message; DONE has no way out.
func (e *Engine) handleDone(_ context.Context, t *turn) error {
	t.say(e.prompts.Render(PromptDone))
	return nil
}
// #endregion qna
