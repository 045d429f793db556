package usecase

import (
	"net/url"
	"strings"

	"hosted-checkout/internal/domain/model"
)

type queryParam struct{ key, value string }

// appendQuery adds params to raw in the given order, keeping any query the
// merchant already put on the URL.
func appendQuery(raw string, params ...queryParam) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	var b strings.Builder
	b.WriteString(u.RawQuery)
	for _, p := range params {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	u.RawQuery = b.String()
	return u.String()
}

func successRedirect(s *model.CheckoutSession) string {
	return appendQuery(s.RedirectURLs.Success,
		queryParam{"status", "success"},
		queryParam{"session_id", s.CheckoutID},
		queryParam{"order_id", s.OrderID},
	)
}

func declineRedirect(s *model.CheckoutSession, code string) string {
	return appendQuery(s.RedirectURLs.Failure,
		queryParam{"status", "failed"},
		queryParam{"plan_id", s.PlanID},
		queryParam{"amount", s.Amount.String()},
		queryParam{"session_id", s.CheckoutID},
		queryParam{"error_code", code},
	)
}

func cancelRedirect(s *model.CheckoutSession) string {
	return appendQuery(s.RedirectURLs.Failure,
		queryParam{"status", "failed"},
		queryParam{"reason", model.FailureUserCancelled},
		queryParam{"plan_id", s.PlanID},
		queryParam{"amount", s.Amount.String()},
		queryParam{"session_id", s.CheckoutID},
	)
}

// terminalRedirect rebuilds the redirect a decided session was sent to, so
// repeated calls hand back the same URL.
func terminalRedirect(s *model.CheckoutSession) string {
	if s.Status == model.CheckoutStatusSuccess {
		return successRedirect(s)
	}
	if s.Failure == nil || s.Failure.Code == model.FailureUserCancelled {
		return cancelRedirect(s)
	}
	return declineRedirect(s, s.Failure.Code)
}
