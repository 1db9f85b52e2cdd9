package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/internal/catalog/domain"
)

func validateChoices(kind domain.OptionKind, choices []domain.OptionChoice) error {
	if kind != domain.OptionKindSelect {
		if kind == domain.OptionKindBoolean || len(choices) == 0 {
			return nil
		}
		return domain.ErrInvalidChoices.Withf("%s options do not take choices", kind)
	}
	if len(choices) == 0 {
		return domain.ErrInvalidChoices
	}
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		value := strings.TrimSpace(choice.Value)
		if value == "" {
			return domain.ErrInvalidChoices
		}
		if _, dup := seen[value]; dup {
			return domain.ErrInvalidChoices.Withf("choice %q listed twice", value)
		}
		seen[value] = struct{}{}
	}
	return nil
}

func (s *Service) EvaluateAnswers(ctx context.Context, serviceID string, answers []domain.Answer) (domain.AnswerEvaluation, error) {
	svc, err := s.GetService(ctx, serviceID)
	if err != nil {
		return domain.AnswerEvaluation{}, err
	}
	options, err := s.repo.ListOptions(ctx, s.db, svc.ID)
	if err != nil {
		return domain.AnswerEvaluation{}, err
	}
	return Evaluate(svc, options, answers)
}

// Evaluate checks answers against options and returns the unit price: the
// base price plus the impact of every selected choice.
func Evaluate(svc domain.PrintService, options []domain.ServiceOption, answers []domain.Answer) (domain.AnswerEvaluation, error) {
	byKey := make(map[string]domain.ServiceOption, len(options))
	for _, option := range options {
		byKey[option.Key] = option
	}

	given := make(map[string]string, len(answers))
	for _, answer := range answers {
		key := strings.ToLower(strings.TrimSpace(answer.Key))
		if _, ok := byKey[key]; !ok {
			return domain.AnswerEvaluation{}, domain.ErrUnknownAnswer.Withf("unknown option %q", answer.Key)
		}
		if _, dup := given[key]; dup {
			return domain.AnswerEvaluation{}, domain.ErrDuplicateAnswer.Withf("option %q answered twice", key)
		}
		given[key] = strings.TrimSpace(answer.Value)
	}

	result := domain.AnswerEvaluation{Service: svc, UnitPrice: svc.BasePrice}
	for _, option := range options {
		value, answered := given[option.Key]
		rules := option.Rules.Data()
		if !answered || value == "" {
			if rules.Required {
				return domain.AnswerEvaluation{}, domain.ErrAnswerRequired.Withf("option %q is required", option.Key)
			}
			continue
		}

		impact, err := checkAnswer(option, rules, value)
		if err != nil {
			return domain.AnswerEvaluation{}, err
		}
		if impact != nil {
			result.UnitPrice = result.UnitPrice.Add(impact.apply(svc.BasePrice))
		}
		result.Answers = append(result.Answers, domain.EvaluatedAnswer{
			Key:   option.Key,
			Label: option.Label,
			Value: value,
		})
	}
	return result, nil
}

type priceImpact domain.PricingImpact

func (p *priceImpact) apply(base decimal.Decimal) decimal.Decimal {
	if p.Kind == domain.ImpactPercent {
		return base.Mul(p.Amount).Div(hundred).Round(2)
	}
	return p.Amount
}

func checkAnswer(option domain.ServiceOption, rules domain.ValidationRules, value string) (*priceImpact, error) {
	invalid := func(format string, args ...any) error {
		return domain.ErrInvalidAnswer.Withf(format, args...)
	}

	switch option.Kind {
	case domain.OptionKindSelect:
		for _, choice := range option.Choices {
			if choice.Value == value {
				return (*priceImpact)(choice.PricingImpact), nil
			}
		}
		return nil, invalid("%q is not a choice of option %q", value, option.Key)

	case domain.OptionKindBoolean:
		switch strings.ToLower(value) {
		case "true":
			for _, choice := range option.Choices {
				if choice.Value == "true" {
					return (*priceImpact)(choice.PricingImpact), nil
				}
			}
			return nil, nil
		case "false":
			return nil, nil
		}
		return nil, invalid("option %q expects true or false", option.Key)

	case domain.OptionKindNumber:
		number, err := decimal.NewFromString(value)
		if err != nil {
			return nil, invalid("option %q expects a number", option.Key)
		}
		if rules.Min != nil && number.LessThan(*rules.Min) {
			return nil, invalid("option %q must be at least %s", option.Key, rules.Min.String())
		}
		if rules.Max != nil && number.GreaterThan(*rules.Max) {
			return nil, invalid("option %q must be at most %s", option.Key, rules.Max.String())
		}
		return nil, nil

	default:
		if rules.MaxLength > 0 && len([]rune(value)) > rules.MaxLength {
			return nil, invalid("option %q is limited to %d characters", option.Key, rules.MaxLength)
		}
		return nil, nil
	}
}
