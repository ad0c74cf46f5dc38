package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-logger/internal/directions"
	"route-logger/internal/models"
	"route-logger/internal/testutil"
)

func setupGeocoder() *testutil.MockGeocoder {
	geocoder := testutil.NewMockGeocoder()
	geocoder.SetLocation("AA1 1AA", 51.1, -0.1)
	geocoder.SetLocation("BB1 1BB", 51.2, -0.2)
	geocoder.SetLocation("CC1 1CC", 51.3, -0.3)
	geocoder.SetLocation("DD1 1DD", 51.4, -0.4)
	geocoder.SetLocation("S1 1AA", 51.0, 0.0)
	geocoder.SetLocation("E1 1EE", 52.0, 0.0)
	return geocoder
}

func fourCustomers() []models.Customer {
	return []models.Customer{
		customer("a", "AA1 1AA"),
		customer("b", "BB1 1BB"),
		customer("c", "CC1 1CC"),
		customer("d", "DD1 1DD"),
	}
}

func TestPlanSingleCustomerIsInputInsufficient(t *testing.T) {
	geocoder := setupGeocoder()
	optimizer := testutil.NewMockOptimizer(nil, nil)
	planner := NewPlanner(NewBuilder(geocoder, 4), optimizer, time.Second)

	_, err := planner.Plan(context.Background(), PlanRequest{Customers: fourCustomers()[:1]})

	var insufficient *ErrInputInsufficient
	require.True(t, errors.As(err, &insufficient))
	assert.Zero(t, geocoder.CallCount())
	assert.Zero(t, optimizer.CallCount())
}

func TestPlanWithoutOptimizerKeepsSelectionOrder(t *testing.T) {
	planner := NewPlanner(NewBuilder(setupGeocoder(), 4), nil, time.Second)

	result, err := planner.Plan(context.Background(), PlanRequest{Customers: fourCustomers()[:3]})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(result.OptimizedCustomers))
	assert.NotNil(t, result.Legs)
	assert.Empty(t, result.Legs)
	assert.Len(t, result.Waypoints, 3)
	assert.False(t, result.Optimized)
}

func TestPlanUnavailableOptimizerKeepsSelectionOrder(t *testing.T) {
	planner := NewPlanner(NewBuilder(setupGeocoder(), 4), directions.NewGoogleOptimizer("http://127.0.0.1:1", "", time.Second), time.Second)

	result, err := planner.Plan(context.Background(), PlanRequest{Customers: fourCustomers()[:3]})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(result.OptimizedCustomers))
	assert.Empty(t, result.Legs)
}

func TestPlanAppliesOptimizerOrder(t *testing.T) {
	legs := []models.RouteLeg{{DistanceMeters: 100}, {DistanceMeters: 200}, {DistanceMeters: 300}}
	optimizer := testutil.NewMockOptimizer([]int{1, 0}, legs)
	planner := NewPlanner(NewBuilder(setupGeocoder(), 4), optimizer, time.Second)

	result, err := planner.Plan(context.Background(), PlanRequest{Customers: fourCustomers()})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b", "d"}, ids(result.OptimizedCustomers))
	assert.Equal(t, legs, result.Legs)
	assert.True(t, result.Optimized)
	require.Equal(t, 1, optimizer.CallCount())
	assert.Len(t, optimizer.Calls[0], 4)

	require.Len(t, result.Stops, 4)
	assert.Equal(t, 1, result.Stops[0].Order)
	assert.Equal(t, "c", result.Stops[1].Customer.ID)
	assert.Equal(t, 51.3, result.Stops[1].Coords.Lat)
}

func TestPlanBothFixed(t *testing.T) {
	optimizer := testutil.NewMockOptimizer([]int{2, 0, 1}, nil)
	planner := NewPlanner(NewBuilder(setupGeocoder(), 4), optimizer, time.Second)

	result, err := planner.Plan(context.Background(), PlanRequest{
		Customers: fourCustomers()[:3],
		Start:     &Endpoint{Postcode: "S1 1AA", Country: "UK"},
		End:       &Endpoint{Postcode: "E1 1EE"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids(result.OptimizedCustomers))
	assert.Equal(t, "S1 1AA", result.StartPostcode)
	assert.Equal(t, "E1 1EE", result.EndPostcode)
	require.Len(t, result.Stops, 5)
	assert.Equal(t, models.WaypointStart, result.Stops[0].Kind)
	assert.Equal(t, models.WaypointEnd, result.Stops[4].Kind)
	assert.Equal(t, 5, result.Stops[4].Order)
}

func TestPlanFailedStartUsesCustomerBoundaries(t *testing.T) {
	// Start does not geocode, so the first customer becomes the route start
	optimizer := testutil.NewMockOptimizer([]int{1, 0}, nil)
	planner := NewPlanner(NewBuilder(setupGeocoder(), 4), optimizer, time.Second)

	result, err := planner.Plan(context.Background(), PlanRequest{
		Customers: fourCustomers(),
		Start:     &Endpoint{Postcode: "ZZ9 9ZZ"},
	})

	require.NoError(t, err)
	assert.Len(t, optimizer.Calls[0], 4)
	assert.Equal(t, []string{"a", "c", "b", "d"}, ids(result.OptimizedCustomers))
	assert.Equal(t, models.WaypointCustomer, result.Stops[0].Kind)
}

func TestPlanFailedCustomerDroppedBeforeReconcile(t *testing.T) {
	optimizer := testutil.NewMockOptimizer([]int{1, 0}, nil)
	planner := NewPlanner(NewBuilder(setupGeocoder(), 4), optimizer, time.Second)

	customers := fourCustomers()
	customers = append(customers[:2], append([]models.Customer{customer("x", "XX9 9XX")}, customers[2:]...)...)

	result, err := planner.Plan(context.Background(), PlanRequest{Customers: customers})

	require.NoError(t, err)
	assert.Len(t, optimizer.Calls[0], 4)
	assert.Equal(t, []string{"a", "c", "b", "d"}, ids(result.OptimizedCustomers))
}

func TestPlanOptimizerErrorKeepsSelectionOrder(t *testing.T) {
	optimizer := testutil.NewMockOptimizer(nil, nil)
	optimizer.Err = &directions.ErrOptimizationFailed{Provider: "mock", Reason: "boom"}
	planner := NewPlanner(NewBuilder(setupGeocoder(), 4), optimizer, time.Second)

	result, err := planner.Plan(context.Background(), PlanRequest{Customers: fourCustomers()})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(result.OptimizedCustomers))
	assert.Empty(t, result.Legs)
	assert.False(t, result.Optimized)
}

func TestPlanInvalidOrderKeepsSelectionOrder(t *testing.T) {
	optimizer := testutil.NewMockOptimizer([]int{0, 7}, nil)
	planner := NewPlanner(NewBuilder(setupGeocoder(), 4), optimizer, time.Second)

	result, err := planner.Plan(context.Background(), PlanRequest{Customers: fourCustomers()})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(result.OptimizedCustomers))
	assert.False(t, result.Optimized)
}

func TestPlanWaypointsInsufficient(t *testing.T) {
	planner := NewPlanner(NewBuilder(setupGeocoder(), 4), nil, time.Second)

	_, err := planner.Plan(context.Background(), PlanRequest{
		Customers: []models.Customer{customer("a", "AA1 1AA"), customer("x", "XX9 9XX")},
	})

	var insufficient *ErrWaypointsInsufficient
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Valid)
}
