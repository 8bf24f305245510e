package billing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/philipparndt/modelforge/internal/account"
	"github.com/philipparndt/modelforge/internal/config"
)

const webhookSecret = "whsec_test"

type fakeStripe struct {
	checkoutForm map[string]string
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/checkout/sessions":
		_ = r.ParseForm()
		f.checkoutForm = map[string]string{}
		for k, v := range r.PostForm {
			f.checkoutForm[k] = v[0]
		}
		fmt.Fprint(w, `{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`)
	case r.URL.Path == "/v1/checkout/sessions/cs_test_1":
		fmt.Fprint(w, `{"id":"cs_test_1","object":"checkout.session","status":"complete","payment_status":"paid","metadata":{"userId":"u1"},"customer":"cus_1"}`)
	case r.URL.Path == "/v1/checkout/sessions/cs_open":
		fmt.Fprint(w, `{"id":"cs_open","object":"checkout.session","status":"open","payment_status":"unpaid","metadata":{"userId":"u1"}}`)
	case r.URL.Path == "/v1/customers/cus_1":
		fmt.Fprint(w, `{"id":"cus_1","object":"customer","email":"maker@example.com"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/v1/billing_portal/sessions":
		fmt.Fprint(w, `{"id":"bps_1","object":"billing_portal.session","url":"https://billing.stripe.com/p/session/test"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"not found"}}`)
	}
}

func setup(t *testing.T) (*Service, *account.Store, *fakeStripe) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(account.Models()...))
	accounts := account.NewStore(db, nil)

	fake := &fakeStripe{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	cfg := config.DefaultConfig().Billing
	cfg.SecretKey = "sk_test_123"
	cfg.WebhookSecret = webhookSecret
	cfg.PriceID = "price_premium"

	svc, err := NewService(cfg, accounts, &stripe.Backends{API: backend, Connect: backend, Uploads: backend}, nil)
	require.NoError(t, err)
	return svc, accounts, fake
}

func signed(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte(payload), Secret: webhookSecret})
	return sp.Header, sp.Payload
}

func TestNewServiceDisabledWithoutKey(t *testing.T) {
	_, err := NewService(config.BillingConfig{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestCreateCheckout(t *testing.T) {
	svc, _, fake := setup(t)

	co, err := svc.CreateCheckout(context.Background(), "u1", "maker@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", co.SessionID)
	assert.Contains(t, co.URL, "checkout.stripe.com")

	assert.Equal(t, "subscription", fake.checkoutForm["mode"])
	assert.Equal(t, "u1", fake.checkoutForm["metadata[userId]"])
	assert.Equal(t, "price_premium", fake.checkoutForm["line_items[0][price]"])
	assert.Equal(t, "maker@example.com", fake.checkoutForm["customer_email"])
}

func TestVerifyCheckoutUpgrades(t *testing.T) {
	svc, accounts, _ := setup(t)
	ctx := context.Background()

	v, err := svc.VerifyCheckout(ctx, "u1", "cs_open")
	require.NoError(t, err)
	assert.False(t, v.Paid)
	assert.Equal(t, account.TierFree, accounts.Tier(ctx, "u1"))

	v, err = svc.VerifyCheckout(ctx, "u1", "cs_test_1")
	require.NoError(t, err)
	assert.True(t, v.Paid)
	assert.Equal(t, account.TierPremium, v.Tier)
	assert.Equal(t, account.TierPremium, accounts.Tier(ctx, "u1"))

	url, err := svc.CreatePortal(ctx, "u1", "")
	require.NoError(t, err)
	assert.Contains(t, url, "billing.stripe.com")

	_, err = svc.CreatePortal(ctx, "u2", "")
	assert.ErrorIs(t, err, ErrNoCustomer)
}

func TestVerifyCheckoutOfAnotherUser(t *testing.T) {
	svc, accounts, _ := setup(t)
	ctx := context.Background()

	_, err := svc.VerifyCheckout(ctx, "u2", "cs_test_1")
	require.ErrorIs(t, err, ErrForeign)
	assert.Equal(t, account.TierFree, accounts.Tier(ctx, "u1"), "a foreign verification must not upgrade")
	assert.Equal(t, account.TierFree, accounts.Tier(ctx, "u2"))
}

func TestWebhookLifecycle(t *testing.T) {
	svc, accounts, _ := setup(t)
	ctx := context.Background()
	_, err := accounts.Ensure(ctx, "u1", "maker@example.com")
	require.NoError(t, err)

	header, body := signed(t, `{"id":"evt_1","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_test_1","object":"checkout.session","metadata":{"userId":"u1"},"customer":"cus_1"}}}`)
	typ, err := svc.HandleWebhook(ctx, body, header)
	require.NoError(t, err)
	assert.Equal(t, "checkout.session.completed", typ)
	assert.Equal(t, account.TierPremium, accounts.Tier(ctx, "u1"))

	header, body = signed(t, `{"id":"evt_2","object":"event","type":"customer.subscription.updated",
		"data":{"object":{"id":"sub_1","object":"subscription","status":"active","customer":"cus_1"}}}`)
	_, err = svc.HandleWebhook(ctx, body, header)
	require.NoError(t, err)
	assert.Equal(t, account.TierPremium, accounts.Tier(ctx, "u1"), "active subscriptions stay premium")

	header, body = signed(t, `{"id":"evt_3","object":"event","type":"customer.subscription.deleted",
		"data":{"object":{"id":"sub_1","object":"subscription","status":"canceled","customer":"cus_1"}}}`)
	_, err = svc.HandleWebhook(ctx, body, header)
	require.NoError(t, err)
	assert.Equal(t, account.TierFree, accounts.Tier(ctx, "u1"))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.HandleWebhook(context.Background(), []byte(`{"type":"checkout.session.completed"}`), "t=1,v1=deadbeef")
	assert.Error(t, err)
}
