package turborest

import "testing"

func TestParseTenancyStrategy(t *testing.T) {
	s, err := ParseTenancyStrategy("dbPerTenant")
	if err != nil || s != DBPerTenant {
		t.Fatalf("expected DBPerTenant, got %v (%v)", s, err)
	}

	s, err = ParseTenancyStrategy("tenantInDb")
	if err != nil || s != TenantInDB {
		t.Fatalf("expected TenantInDB, got %v (%v)", s, err)
	}

	if _, err := ParseTenancyStrategy("perSchema"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestNewTenancyResolver_SharedRequiresName(t *testing.T) {
	if _, err := NewTenancyResolver(TenantInDB, ""); err == nil {
		t.Fatal("expected error for tenantInDb without database name")
	}
	if _, err := NewTenancyResolver(TenancyStrategy("bogus"), "x"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestResolve_DBPerTenant(t *testing.T) {
	r, err := NewTenancyResolver(DBPerTenant, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Resolve("t1"); got != "t1" {
		t.Fatalf("expected t1, got %q", got)
	}
	if got := r.Resolve("t2"); got != "t2" {
		t.Fatalf("expected t2, got %q", got)
	}
}

func TestResolve_TenantInDB(t *testing.T) {
	r, err := NewTenancyResolver(TenantInDB, "shared")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Resolve("t1"); got != "shared" {
		t.Fatalf("expected shared, got %q", got)
	}
	if got := r.Resolve("t2"); got != "shared" {
		t.Fatalf("expected shared, got %q", got)
	}
}

func TestConnectString(t *testing.T) {
	c := ConnectionConfig{HostPort: "db:27017"}
	if got := c.connectString("t1"); got != "mongodb://db:27017/t1" {
		t.Fatalf("unexpected connect string %q", got)
	}

	c = ConnectionConfig{HostPort: "db:27017", Username: "owner", Password: "secret"}
	want := "mongodb://owner:secret@db:27017/t1?authSource=admin"
	if got := c.connectString("t1"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
