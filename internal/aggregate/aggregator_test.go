package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rentalsign/internal/platform/config"
	dErrors "rentalsign/pkg/domain-errors"
)

type AggregatorSuite struct {
	suite.Suite
	ctx context.Context
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *AggregatorSuite) newAggregator(profile, equipment, rental http.Handler) (*Aggregator, func()) {
	profileSrv := httptest.NewServer(profile)
	equipmentSrv := httptest.NewServer(equipment)
	rentalSrv := httptest.NewServer(rental)

	agg := New(config.Upstreams{
		ProfileBaseURL:   profileSrv.URL,
		EquipmentBaseURL: equipmentSrv.URL,
		RentalBaseURL:    rentalSrv.URL,
		FetchTimeout:     2 * time.Second,
	}, slog.New(slog.DiscardHandler))

	return agg, func() {
		profileSrv.Close()
		equipmentSrv.Close()
		rentalSrv.Close()
	}
}

func jsonHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
}

func failHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
}

func (s *AggregatorSuite) TestFetchAllUpstreamsHealthy() {
	profiles := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("user") {
		case "owner-1":
			fmt.Fprint(w, `{"first_name":"Amal","last_name":"Rentals","phone":"+216 20 000 000"}`)
		default:
			fmt.Fprint(w, `{"first_name":"Youssef","last_name":"Ben Ali","phone":"+216 21 111 111"}`)
		}
	})
	equipment := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"stuffname":"Drill %s","brand":"Bosch","price_per_day":"25"}`, r.URL.Path)
	})
	rental := jsonHandler(`{"id":7,"status":"accepted","quantity":1,"total_price":"150","start_date":"2026-03-01","end_date":"2026-03-08"}`)

	agg, cleanup := s.newAggregator(profiles, equipment, rental)
	defer cleanup()

	out := agg.Fetch(s.ctx, "owner-1", "client-1", []string{"10", "11"}, "7")

	s.Require().NotNil(out.Owner)
	s.Equal("Amal", out.Owner.FirstName)
	s.Require().NotNil(out.Client)
	s.Equal("Youssef", out.Client.FirstName)
	s.Require().NotNil(out.Request)
	s.Equal("150", out.Request.TotalPrice)

	// Results line up with the requested identifier order.
	s.Require().Len(out.Equipment, 2)
	s.Require().NotNil(out.Equipment[0])
	s.Equal("Drill /api/stuffs/10/", out.Equipment[0].Name)
	s.Require().NotNil(out.Equipment[1])
	s.Equal("Drill /api/stuffs/11/", out.Equipment[1].Name)
}

func (s *AggregatorSuite) TestFetchProfileArrayPayload() {
	profiles := jsonHandler(`[{"first_name":"Sami","last_name":"Trabelsi"},{"first_name":"ignored"}]`)
	agg, cleanup := s.newAggregator(profiles, jsonHandler(`{}`), jsonHandler(`{}`))
	defer cleanup()

	out := agg.Fetch(s.ctx, "owner-1", "", nil, "")
	s.Require().NotNil(out.Owner)
	s.Equal("Sami", out.Owner.FirstName)
	s.Nil(out.Client)
	s.Nil(out.Request)
}

func (s *AggregatorSuite) TestFetchPartialFailure() {
	rental := jsonHandler(`{"id":9,"total_price":"80"}`)
	agg, cleanup := s.newAggregator(failHandler(), failHandler(), rental)
	defer cleanup()

	out := agg.Fetch(s.ctx, "owner-1", "client-1", []string{"10"}, "9")

	s.Nil(out.Owner)
	s.Nil(out.Client)
	s.Require().Len(out.Equipment, 1)
	s.Nil(out.Equipment[0])
	s.Require().NotNil(out.Request)
	s.Equal("80", out.Request.TotalPrice)
}

func (s *AggregatorSuite) TestFetchEmptyIdentifiersSkipNetwork() {
	var calls int
	counter := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, `{}`)
	})
	agg, cleanup := s.newAggregator(counter, counter, counter)
	defer cleanup()

	out := agg.Fetch(s.ctx, "", "", []string{""}, "")
	s.Nil(out.Owner)
	s.Nil(out.Client)
	s.Nil(out.Request)
	s.Require().Len(out.Equipment, 1)
	s.Nil(out.Equipment[0])
	s.Zero(calls)
}

func (s *AggregatorSuite) TestFetchMalformedPayload() {
	agg, cleanup := s.newAggregator(jsonHandler(`not json`), jsonHandler(`not json`), jsonHandler(`not json`))
	defer cleanup()

	out := agg.Fetch(s.ctx, "owner-1", "client-1", []string{"10"}, "9")
	s.Nil(out.Owner)
	s.Nil(out.Client)
	s.Nil(out.Equipment[0])
	s.Nil(out.Request)
}

func (s *AggregatorSuite) TestUpstreamErrorsCarryFetchCode() {
	agg, cleanup := s.newAggregator(failHandler(), failHandler(), failHandler())
	defer cleanup()

	_, err := agg.get(s.ctx, agg.cfg.ProfileBaseURL+"/profile/profil/?user=7")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeFetchFailed))

	_, err = agg.get(s.ctx, "http://127.0.0.1:1/unreachable")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeFetchFailed))
}

func (s *AggregatorSuite) TestFirstEquipment() {
	ctx := &Context{Equipment: []*Equipment{nil, {Name: "Mixer"}, {Name: "Crane"}}}
	s.Require().NotNil(ctx.FirstEquipment())
	s.Equal("Mixer", ctx.FirstEquipment().Name)

	s.Nil((&Context{}).FirstEquipment())
	s.Nil((*Context)(nil).FirstEquipment())
}
