package model

import "testing"

func TestTransaction_Role(t *testing.T) {
	tests := []struct {
		name string
		txn  Transaction
		want Role
	}{
		{
			name: "template",
			txn:  Transaction{ID: "t1", IsRecurringTemplate: true, RecurringDay: 15},
			want: RoleTemplate,
		},
		{
			name: "generated instance",
			txn:  Transaction{ID: "i1", RecurringParentID: "t1"},
			want: RoleInstance,
		},
		{
			name: "first parcel",
			txn:  Transaction{ID: "p1", IsInstallment: true, InstallmentNumber: 1, TotalInstallments: 3},
			want: RoleParcel,
		},
		{
			name: "later parcel",
			txn:  Transaction{ID: "p2", IsInstallment: true, InstallmentNumber: 2, TotalInstallments: 3, InstallmentParentID: "p1"},
			want: RoleParcel,
		},
		{
			name: "plain",
			txn:  Transaction{ID: "x1"},
			want: RolePlain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.txn.Role(); got != tt.want {
				t.Errorf("Role() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransaction_SeriesTemplateID(t *testing.T) {
	template := Transaction{ID: "t1", IsRecurringTemplate: true}
	if got := template.SeriesTemplateID(); got != "t1" {
		t.Errorf("template resolves to itself, got %q", got)
	}

	instance := Transaction{ID: "i1", RecurringParentID: "t1"}
	if got := instance.SeriesTemplateID(); got != "t1" {
		t.Errorf("instance resolves to parent, got %q", got)
	}

	plain := Transaction{ID: "x1"}
	if got := plain.SeriesTemplateID(); got != "" {
		t.Errorf("plain row has no template, got %q", got)
	}
}

func TestTransaction_GroupAnchorID(t *testing.T) {
	first := Transaction{ID: "p1", IsInstallment: true, InstallmentNumber: 1}
	if got := first.GroupAnchorID(); got != "p1" {
		t.Errorf("first parcel anchors itself, got %q", got)
	}

	later := Transaction{ID: "p3", IsInstallment: true, InstallmentNumber: 3, InstallmentParentID: "p1"}
	if got := later.GroupAnchorID(); got != "p1" {
		t.Errorf("later parcel anchors its parent, got %q", got)
	}

	plain := Transaction{ID: "x1"}
	if got := plain.GroupAnchorID(); got != "" {
		t.Errorf("plain row has no anchor, got %q", got)
	}
}
