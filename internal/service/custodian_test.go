package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/queue"
)

func (f *fixture) maintenanceService() *MaintenanceService {
	s := NewMaintenanceService(fakeMaintenance{f.db}, fakeBookings{f.db}, fakeHostels{f.db}, f.events, quietLogger())
	s.now = fixedNow
	return s
}

func (f *fixture) custodianService() *CustodianService {
	s := NewCustodianService(fakeHostels{f.db}, fakeRooms{f.db}, fakeBookings{f.db}, fakePayments{f.db},
		fakeMaintenance{f.db}, fakeNotifications{memDB: f.db}, quietLogger())
	s.now = fixedNow
	return s
}

func TestMaintenanceLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.bookings.Checkout(ctx, studentID, mobileMoney()); err != nil {
		t.Fatal(err)
	}
	ms := f.maintenanceService()

	m, err := ms.Create(ctx, studentID, MaintenanceInput{Category: "plumbing", Description: "Leaking tap"})
	if err != nil {
		t.Fatal(err)
	}
	if m.Status != model.MaintenancePending || m.RoomNumber != "A-104" || m.HostelID == nil || *m.HostelID != hostelID {
		t.Fatalf("request = %+v", m)
	}
	ev := f.events.events[len(f.events.events)-1]
	if ev.Type != queue.EventMaintenanceCreated || ev.CustodianID != custodianID {
		t.Fatalf("event = %+v", ev)
	}

	if _, err := ms.UpdateStatus(ctx, 999, m.ID, "In Progress"); statusOf(err) != http.StatusForbidden {
		t.Fatalf("foreign custodian err = %v", err)
	}
	got, err := ms.UpdateStatus(ctx, custodianID, m.ID, "in_progress")
	if err != nil || got.Status != model.MaintenanceInProgress {
		t.Fatalf("update = %+v, %v", got, err)
	}
	if _, err := ms.UpdateStatus(ctx, custodianID, m.ID, "resolved"); err != nil {
		t.Fatal(err)
	}
	if _, err := ms.UpdateStatus(ctx, custodianID, m.ID, "pending"); statusOf(err) != http.StatusConflict {
		t.Fatalf("reopen err = %v", err)
	}

	open, err := ms.ListForCustodian(ctx, custodianID, "pending")
	if err != nil || len(open) != 0 {
		t.Fatalf("pending = %+v, %v", open, err)
	}
	mine, err := ms.ListMine(ctx, studentID)
	if err != nil || len(mine) != 1 {
		t.Fatalf("mine = %+v, %v", mine, err)
	}
}

func TestMaintenanceValidation(t *testing.T) {
	f := newFixture()
	ms := f.maintenanceService()
	ctx := context.Background()
	tests := []MaintenanceInput{
		{Category: "Gardening", RoomNumber: "A-1", Description: "x"},
		{Category: "Other", RoomNumber: "A-1", Description: "   "},
		{Category: "Other", Description: "no booking and no room"},
	}
	for _, in := range tests {
		if _, err := ms.Create(ctx, studentID, in); statusOf(err) != http.StatusBadRequest {
			t.Errorf("%+v: err = %v", in, err)
		}
	}
	m, err := ms.Create(ctx, studentID, MaintenanceInput{Category: "Internet", RoomNumber: "B-2", Description: "No wifi"})
	if err != nil || m.HostelID != nil {
		t.Fatalf("request without booking = %+v, %v", m, err)
	}
}

func TestCustodianDashboard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.bookings.Checkout(ctx, studentID, mobileMoney()); err != nil {
		t.Fatal(err)
	}
	if _, err := f.maintenanceService().Create(ctx, studentID, MaintenanceInput{Category: "Cleaning", Description: "Dusty"}); err != nil {
		t.Fatal(err)
	}

	d, err := f.custodianService().Dashboard(ctx, custodianID)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Hostels) != 1 || d.Hostels[0].Beds != 2 || d.Hostels[0].Occupied != 1 {
		t.Fatalf("hostels = %+v", d.Hostels)
	}
	if len(d.RecentBookings) != 1 || d.Payments.Completed != 800000 || d.Payments.CompletedCount != 1 {
		t.Fatalf("dashboard = %+v", d)
	}
	if d.OpenMaintenance != 1 {
		t.Fatalf("open maintenance = %d", d.OpenMaintenance)
	}
}

func TestCustodianRooms(t *testing.T) {
	f := newFixture()
	cs := f.custodianService()
	ctx := context.Background()
	price, capacity := int64(650000), 3

	rm, err := cs.CreateRoom(ctx, custodianID, RoomInput{HostelID: hostelID, RoomNumber: "B-201", Price: &price, Capacity: &capacity})
	if err != nil || !rm.IsActive {
		t.Fatalf("create = %+v, %v", rm, err)
	}
	if _, err := cs.CreateRoom(ctx, custodianID, RoomInput{HostelID: hostelID, RoomNumber: "B-201", Price: &price, Capacity: &capacity}); statusOf(err) != http.StatusConflict {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, err := cs.CreateRoom(ctx, 999, RoomInput{HostelID: hostelID, RoomNumber: "B-202", Price: &price, Capacity: &capacity}); statusOf(err) != http.StatusForbidden {
		t.Fatalf("foreign custodian err = %v", err)
	}

	if _, err := f.bookings.Checkout(ctx, studentID, mobileMoney()); err != nil {
		t.Fatal(err)
	}
	zero := 0
	if _, err := cs.UpdateRoom(ctx, custodianID, roomID, RoomInput{Capacity: &zero}); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("zero capacity err = %v", err)
	}
	newPrice := int64(900000)
	up, err := cs.UpdateRoom(ctx, custodianID, roomID, RoomInput{Price: &newPrice})
	if err != nil || up.Price != 900000 || up.Occupancy != 1 {
		t.Fatalf("update = %+v, %v", up, err)
	}

	ps, err := cs.ListPayments(ctx, custodianID)
	if err != nil || len(ps) != 1 {
		t.Fatalf("payments = %+v, %v", ps, err)
	}
}
