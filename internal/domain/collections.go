package domain

import "sort"

// DataGroup is a family of collections selected together by one
// BackupOptions flag.
type DataGroup struct {
	Label       string
	Collections []string
	selected    func(BackupOptions) bool
}

func (g DataGroup) Selected(opts BackupOptions) bool {
	return g.selected(opts)
}

// DataGroups lists the collections captured by a backup, in label order.
var DataGroups = []DataGroup{
	{
		Label:       "Sales",
		Collections: []string{"sales_invoices", "customers", "sales_returns"},
		selected:    func(o BackupOptions) bool { return o.IncludeSalesData },
	},
	{
		Label:       "Purchases",
		Collections: []string{"purchase_invoices", "suppliers", "purchase_returns"},
		selected:    func(o BackupOptions) bool { return o.IncludePurchaseData },
	},
	{
		Label:       "Inventory",
		Collections: []string{"products", "categories", "warehouses", "stock_movements"},
		selected:    func(o BackupOptions) bool { return o.IncludeInventoryData },
	},
	{
		Label:       "Employees",
		Collections: []string{"employees", "payroll", "attendance"},
		selected:    func(o BackupOptions) bool { return o.IncludeEmployeeData },
	},
	{
		Label:       "Financial",
		Collections: []string{"accounts", "transactions", "expenses", "cash_boxes"},
		selected:    func(o BackupOptions) bool { return o.IncludeFinancialData },
	},
	{
		Label:       "Investors",
		Collections: []string{"investors", "investor_transactions"},
		selected:    func(o BackupOptions) bool { return o.IncludeInvestorData },
	},
}

const SettingsLabel = "Settings"

// SettingsGroup maps a settings group name inside a backup to the store key
// holding it.
type SettingsGroup struct {
	Name string
	Key  string
}

var SettingsGroups = []SettingsGroup{
	{Name: "company", Key: "company_settings"},
	{Name: "application", Key: "app_settings"},
	{Name: "user", Key: "user_settings"},
	{Name: "security", Key: "security_settings"},
}

// SettingsKey resolves the store key for a settings group. Groups that are
// not part of the fixed table (e.g. from imported files) are stored under
// their own name.
func SettingsKey(group string) string {
	for _, g := range SettingsGroups {
		if g.Name == group {
			return g.Key
		}
	}
	return group
}

// LabelForCollection returns the data type label owning a collection key.
func LabelForCollection(key string) (string, bool) {
	for _, g := range DataGroups {
		for _, c := range g.Collections {
			if c == key {
				return g.Label, true
			}
		}
	}
	return "", false
}

const (
	// BackupsKey is the single store key holding every backup record.
	BackupsKey = "backups"
	// GDriveTokenKey holds the authorized Google Drive token.
	GDriveTokenKey = "gdrive_oauth_token"
)

// reservedKeys hold the backup subsystem's own state. Restoring or importing
// a backup never writes them.
var reservedKeys = map[string]bool{
	BackupsKey:       true,
	ScheduleKey:      true,
	ScheduleStateKey: true,
	GDriveTokenKey:   true,
}

func IsReservedKey(key string) bool {
	return reservedKeys[key]
}

// ReservedKeysIn returns the sorted store keys of record that are reserved,
// looking at data collections and the keys settings groups resolve to.
func ReservedKeysIn(record *BackupRecord) []string {
	var keys []string
	for key := range record.Data {
		if IsReservedKey(key) {
			keys = append(keys, key)
		}
	}
	for group := range record.Settings {
		if key := SettingsKey(group); IsReservedKey(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
