package server

import "testing"

func TestSplitIdentity(t *testing.T) {
	tests := []struct {
		name           string
		username       string
		wantDepartment string
		wantDisplay    string
	}{
		{
			name:           "department and display name",
			username:       "Logística - Ana",
			wantDepartment: "Logística",
			wantDisplay:    "Ana",
		},
		{
			name:           "no separator defaults department",
			username:       "Ana",
			wantDepartment: "General",
			wantDisplay:    "Ana",
		},
		{
			name:           "hyphen without spaces is not a separator",
			username:       "Ana-Maria",
			wantDepartment: "General",
			wantDisplay:    "Ana-Maria",
		},
		{
			name:           "first separator wins when display name contains one",
			username:       "Ventas - Juan - Pablo",
			wantDepartment: "Ventas",
			wantDisplay:    "Juan - Pablo",
		},
		{
			name:           "empty display name after separator",
			username:       "Ventas - ",
			wantDepartment: "Ventas",
			wantDisplay:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			department, display := splitIdentity(tt.username)
			if department != tt.wantDepartment {
				t.Errorf("department = %q, want %q", department, tt.wantDepartment)
			}
			if display != tt.wantDisplay {
				t.Errorf("displayName = %q, want %q", display, tt.wantDisplay)
			}
		})
	}
}

func TestDeriveRole(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     string
	}{
		{"plain user", "Ana", RoleUser},
		{"admin keyword", "admin01", RoleAdmin},
		{"admin keyword case insensitive", "ADMIN - Carlos", RoleAdmin},
		{"administrador keyword", "Administrador General", RoleAdmin},
		{"management alias", "Gerencia - Marta", RoleAdmin},
		{"logistics keyword with accent", "Logística - Ana", RoleSupervisor},
		{"logistics keyword without accent", "logistica02", RoleSupervisor},
		{"billing keyword", "Facturación - Pedro", RoleSupervisor},
		{"supervisor keyword", "Supervisor Turno B", RoleSupervisor},
		{"chief keyword", "Jefe de Planta", RoleSupervisor},
		{"admin wins over supervisor", "Logística - admin", RoleAdmin},
		{"keyword inside a longer word", "Cobranzas - Luis", RoleSupervisor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveRole(tt.username); got != tt.want {
				t.Errorf("deriveRole(%q) = %q, want %q", tt.username, got, tt.want)
			}
		})
	}
}
