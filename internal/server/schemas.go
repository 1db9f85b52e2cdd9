package server

import (
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
	bookingdomain "github.com/smallbiznis/printflow/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/printflow/internal/catalog/domain"
	inventorydomain "github.com/smallbiznis/printflow/internal/inventory/domain"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	paymentdomain "github.com/smallbiznis/printflow/internal/payment/domain"
	proofdomain "github.com/smallbiznis/printflow/internal/proofing/domain"
	quotedomain "github.com/smallbiznis/printflow/internal/quote/domain"
)

// requestSchemas lists the request bodies clients can fetch a JSON Schema for.
var requestSchemas = map[string]any{
	"create_service":     catalogdomain.CreateServiceRequest{},
	"update_service":     catalogdomain.UpdateServiceRequest{},
	"add_option":         catalogdomain.AddOptionRequest{},
	"create_tier":        catalogdomain.CreateTierRequest{},
	"add_deliverable":    catalogdomain.AddDeliverableRequest{},
	"submit_quote":       quotedomain.SubmitQuoteRequest{},
	"reject_quote":       quotedomain.RejectQuoteRequest{},
	"finalize_quote":     quotedomain.FinalizeQuoteRequest{},
	"advance_status":     orderdomain.AdvanceStatusRequest{},
	"record_revision":    orderdomain.RecordRevisionRequest{},
	"assign_staff":       orderdomain.AssignStaffRequest{},
	"set_priority":       orderdomain.SetPriorityRequest{},
	"upload_proof":       proofdomain.UploadProofRequest{},
	"respond_proof":      proofdomain.RespondProofRequest{},
	"create_booking":     bookingdomain.CreateBookingRequest{},
	"reschedule_booking": bookingdomain.RescheduleBookingRequest{},
	"cancel_booking":     bookingdomain.CancelBookingRequest{},
	"capacity_setting":   bookingdomain.UpsertCapacitySettingRequest{},
	"capacity_override":  bookingdomain.SetCapacityOverrideRequest{},
	"blackout_date":      bookingdomain.AddBlackoutDateRequest{},
	"record_payment":     paymentdomain.RecordPaymentRequest{},
	"fail_payment":       paymentdomain.FailPaymentRequest{},
	"refund_payment":     paymentdomain.RefundPaymentRequest{},
	"create_item":        inventorydomain.CreateItemRequest{},
	"record_transaction": inventorydomain.RecordTransactionRequest{},
	"create_rule":        inventorydomain.CreateRuleRequest{},
}

var (
	schemaOnce  sync.Once
	schemaCache map[string]*jsonschema.Schema
)

func (s *Server) GetSchema(c *gin.Context) {
	schemaOnce.Do(buildSchemas)

	name := strings.TrimSpace(c.Param("name"))
	schema, ok := schemaCache[name]
	if !ok {
		AbortWithError(c, ErrNotFound.Withf("unknown schema %q", name))
		return
	}
	c.JSON(http.StatusOK, schema)
}

func buildSchemas() {
	decimalType := reflect.TypeOf(decimal.Decimal{})
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == decimalType {
				return &jsonschema.Schema{
					Type:    "string",
					Pattern: `^-?[0-9]+(\.[0-9]+)?$`,
				}
			}
			return nil
		},
	}

	schemaCache = make(map[string]*jsonschema.Schema, len(requestSchemas))
	for name, v := range requestSchemas {
		schema := r.Reflect(v)
		schema.Title = name
		schema.Required = requiredFromBinding(reflect.TypeOf(v))
		schemaCache[name] = schema
	}
}

// requiredFromBinding lists the json names of fields whose binding tag demands a value.
func requiredFromBinding(t reflect.Type) []string {
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		rules := strings.Split(f.Tag.Get("binding"), ",")
		required := false
		for _, rule := range rules {
			if rule == "required" {
				required = true
			}
		}
		if !required {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			name = f.Name
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
