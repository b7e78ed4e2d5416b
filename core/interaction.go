package core

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// InteractionRetention 是行为日志的保留窗口，超过窗口的记录不可再被查询。
const InteractionRetention = 30 * 24 * time.Hour

// InteractionType 是用户行为类型。
type InteractionType string

const (
	InteractionView     InteractionType = "view"
	InteractionCart     InteractionType = "cart"
	InteractionPurchase InteractionType = "purchase"
	InteractionLike     InteractionType = "like"
)

// Interaction 是一条用户-商品行为记录，写入后不再更新。
type Interaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	ProductID string          `json:"productId"`
	Type      InteractionType `json:"type"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Expired 判断记录在 now 时刻是否已超出保留窗口。
func (in Interaction) Expired(now time.Time, retention time.Duration) bool {
	if retention <= 0 {
		retention = InteractionRetention
	}
	return !in.CreatedAt.After(now.Add(-retention))
}

// TrackRequest 是一次埋点请求。约束由 validate 标签声明，见 Validate。
type TrackRequest struct {
	UserID    string `json:"userId" validate:"required,entityid"`
	ProductID string `json:"productId" validate:"required,entityid"`
	Type      string `json:"type" validate:"required,oneof=view cart purchase like"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// entityid 与读路径共用 ParseID 的标识符规则
	_ = v.RegisterValidation("entityid", func(fl validator.FieldLevel) bool {
		_, ok := ParseID(fl.Field().String())
		return ok
	})
	return v
}

// Validate 去掉首尾空白后校验请求，失败时返回 INVALID_INPUT。
func (req *TrackRequest) Validate() error {
	req.UserID = strings.TrimSpace(req.UserID)
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.Type = strings.TrimSpace(req.Type)

	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return &DomainError{Module: ModuleInteraction, Code: ErrorCodeInvalidInput, Message: "interaction: invalid request", Err: err}
	}
	fe := fields[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fe.Field() + " is required"
	case "oneof":
		msg = fe.Field() + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		msg = fe.Field() + " is not a valid id"
	}
	return NewDomainError(ModuleInteraction, ErrorCodeInvalidInput, "interaction: "+msg)
}

// NewInteraction 校验埋点请求并构造 Interaction。
func NewInteraction(req TrackRequest, now time.Time) (Interaction, error) {
	if err := req.Validate(); err != nil {
		return Interaction{}, err
	}
	return Interaction{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		ProductID: req.ProductID,
		Type:      InteractionType(req.Type),
		CreatedAt: now,
	}, nil
}
