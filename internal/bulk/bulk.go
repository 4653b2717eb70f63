// Package bulk применяет одно изменение ко всем записям, подходящим под фильтр,
// по протоколу plan → confirm → apply. План подписывается токеном, и apply
// принимает только подтверждённый список кандидатов.
package bulk

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/jamiechicago312/openlinks/internal/models"
	"github.com/jamiechicago312/openlinks/internal/repository"
)

var (
	// ErrInvalidPlan возвращается для неподписанного, изменённого или просроченного плана
	ErrInvalidPlan = errors.New("invalid or expired bulk plan")
	// ErrUnknownAction возвращается для неизвестного вида изменения
	ErrUnknownAction = errors.New("unknown bulk action")
)

// DefaultPlanTTL - срок действия токена плана
const DefaultPlanTTL = 15 * time.Minute

const planSubject = "bulk-plan"

// ActionKind - вид массового изменения
type ActionKind string

const (
	// ActionArchive архивирует каждую запись
	ActionArchive ActionKind = "archive"
	// ActionUpdate применяет к каждой записи одно и то же частичное обновление
	ActionUpdate ActionKind = "update"
)

// Action описывает изменение, применяемое к каждому кандидату
type Action struct {
	Kind   ActionKind        `json:"kind"`
	Update models.LinkUpdate `json:"update,omitempty"`
}

// Plan - предварительный просмотр: кандидаты на момент вызова и токен подтверждения
type Plan struct {
	Filter     models.ListFilter `json:"filter"`
	Candidates []models.Link     `json:"candidates"`
	Token      string            `json:"token"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// Slugs возвращает слаги кандидатов в порядке плана
func (p Plan) Slugs() []string {
	out := make([]string, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		out = append(out, c.Slug)
	}
	return out
}

// Failure описывает неудачу по одному кандидату
type Failure struct {
	Slug   string `json:"slug"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Result перечисляет успешные и неудачные кандидаты
type Result struct {
	Succeeded []string  `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// planClaims - содержимое токена плана
type planClaims struct {
	Slugs []string `json:"slugs"`
	jwt.RegisteredClaims
}

// Engine выполняет массовые операции поверх хранилища
type Engine struct {
	repo   repository.Repository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewEngine создаёт движок. Пустой secret заменяется случайным ключом процесса:
// токены тогда действительны только в этом процессе.
func NewEngine(repo repository.Repository, secret string, logger *zap.Logger) (*Engine, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate plan secret: %w", err)
		}
	}
	return &Engine{
		repo:   repo,
		secret: key,
		ttl:    DefaultPlanTTL,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}, nil
}

// SetClock задаёт источник времени
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Plan возвращает кандидатов, подходящих под фильтр, на текущий момент. Не изменяет данные.
func (e *Engine) Plan(ctx context.Context, filter models.ListFilter) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}
	candidates := e.repo.List(filter)
	now := e.now()
	expires := now.Add(e.ttl)

	plan := Plan{
		Filter:     filter,
		Candidates: candidates,
		ExpiresAt:  expires,
	}
	claims := planClaims{
		Slugs: plan.Slugs(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   planSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.secret)
	if err != nil {
		return Plan{}, fmt.Errorf("sign plan: %w", err)
	}
	plan.Token = token

	e.logger.Info("Bulk plan prepared", zap.Int("candidates", len(candidates)), zap.Strings("tags", filter.Tags))
	return plan, nil
}

// Verify проверяет токен и возвращает подтверждённые слаги
func (e *Engine) Verify(token string) ([]string, error) {
	claims := &planClaims{}
	// Срок действия проверяется ниже по часам движка
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return e.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if claims.Subject != planSubject {
		return nil, fmt.Errorf("%w: unexpected subject %q", ErrInvalidPlan, claims.Subject)
	}
	if claims.ExpiresAt == nil || !e.now().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: plan expired", ErrInvalidPlan)
	}
	return claims.Slugs, nil
}

// Apply применяет изменение к кандидатам плана. Список кандидатов должен совпадать
// с подписанным в токене.
func (e *Engine) Apply(ctx context.Context, plan Plan, action Action) (Result, error) {
	slugs, err := e.Verify(plan.Token)
	if err != nil {
		return Result{}, err
	}
	if !sameSlugs(slugs, plan.Slugs()) {
		return Result{}, fmt.Errorf("%w: candidates do not match the signed plan", ErrInvalidPlan)
	}
	return e.apply(ctx, slugs, action)
}

// ApplyToken применяет изменение к кандидатам, подписанным в токене
func (e *Engine) ApplyToken(ctx context.Context, token string, action Action) (Result, error) {
	slugs, err := e.Verify(token)
	if err != nil {
		return Result{}, err
	}
	return e.apply(ctx, slugs, action)
}

// apply обрабатывает кандидатов по одному: ошибка одного не прерывает остальные,
// каждый успех - отдельная фиксация хранилища.
func (e *Engine) apply(ctx context.Context, slugs []string, action Action) (Result, error) {
	op, err := e.operation(action)
	if err != nil {
		return Result{}, err
	}

	res := Result{Succeeded: []string{}, Failed: []Failure{}}
	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, Failure{Slug: slug, Reason: err.Error(), Err: err})
			continue
		}
		if err := op(ctx, slug); err != nil {
			e.logger.Warn("Bulk item failed", zap.String("slug", slug), zap.String("action", string(action.Kind)), zap.Error(err))
			res.Failed = append(res.Failed, Failure{Slug: slug, Reason: err.Error(), Err: err})
			continue
		}
		res.Succeeded = append(res.Succeeded, slug)
	}

	e.logger.Info("Bulk action applied",
		zap.String("action", string(action.Kind)),
		zap.Int("succeeded", len(res.Succeeded)),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

func (e *Engine) operation(action Action) (func(ctx context.Context, slug string) error, error) {
	switch action.Kind {
	case ActionArchive:
		return func(ctx context.Context, slug string) error {
			_, err := e.repo.Archive(ctx, slug)
			return err
		}, nil
	case ActionUpdate:
		if action.Update.IsEmpty() {
			return nil, fmt.Errorf("%w: update without fields", ErrUnknownAction)
		}
		return func(ctx context.Context, slug string) error {
			_, err := e.repo.Update(ctx, slug, action.Update)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action.Kind)
	}
}

// CleanupFilter - пресет плановой очистки: все истёкшие активные записи
func CleanupFilter() models.ListFilter {
	return models.ListFilter{ExpiredOnly: true}
}

func sameSlugs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	return strings.Join(x, "\x00") == strings.Join(y, "\x00")
}
