package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo association, bureau members and opening ledger entries.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{
				"loan_repayments", "transactions", "validation_records",
				"expense_requests", "memberships", "expense_type_rules", "associations",
			} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		assocName := "Les Amis du Quartier"
		var assocID int64
		row := db.Raw("SELECT id FROM associations WHERE name = ?", assocName).Row()
		if err := row.Scan(&assocID); err != nil {
			if err := db.Exec(
				"INSERT INTO associations (name, currency, low_balance_threshold, created_at, updated_at) VALUES (?, 'EUR', ?, now(), now())",
				assocName, cfg.Treasury.DefaultLowBalanceThreshold,
			).Error; err != nil {
				log.Fatalf("failed to insert association: %v", err)
			}
			if err := db.Raw("SELECT id FROM associations WHERE name = ?", assocName).Row().Scan(&assocID); err != nil {
				log.Fatalf("failed to lookup association id: %v", err)
			}
			fmt.Println("Seeded association:", assocName)
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), cfg.Security.BCryptCost)

		members := []struct {
			UserID int64
			Email  string
			Role   string
		}{
			{1, "presidente@amisduquartier.fr", "president"},
			{2, "tresorier@amisduquartier.fr", "treasurer"},
			{3, "secretaire@amisduquartier.fr", "secretary"},
			{4, "membre@amisduquartier.fr", "member"},
		}

		for _, m := range members {
			var exists int
			row := db.Raw("SELECT 1 FROM memberships WHERE user_id = ? AND association_id = ?", m.UserID, assocID).Row()
			if err := row.Scan(&exists); err == nil {
				continue
			}

			if err := db.Exec(
				"INSERT INTO memberships (user_id, association_id, role, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?, now())",
				m.UserID, assocID, m.Role, m.Email, string(hash),
			).Error; err != nil {
				log.Fatalf("failed to insert membership %s: %v", m.Email, err)
			}
			fmt.Printf("Seeded member: %s (%s)\n", m.Email, m.Role)
		}

		rules := []struct {
			ExpenseType   string
			RequiredRoles string
			MaxAmount     *int64
		}{
			{"achat", `["president","treasurer"]`, int64Ptr(100000)},
			{"evenement", `["president","treasurer","secretary"]`, nil},
			{"pret", `["president","treasurer"]`, int64Ptr(500000)},
			{"remboursement_frais", `["treasurer"]`, int64Ptr(20000)},
		}

		for _, r := range rules {
			var exists int
			row := db.Raw(
				"SELECT 1 FROM expense_type_rules WHERE association_id = ? AND expense_type = ? AND subtype IS NULL",
				assocID, r.ExpenseType,
			).Row()
			if err := row.Scan(&exists); err == nil {
				continue
			}

			if err := db.Exec(
				"INSERT INTO expense_type_rules (association_id, expense_type, subtype, required_roles, max_amount) VALUES (?, ?, NULL, ?, ?)",
				assocID, r.ExpenseType, r.RequiredRoles, r.MaxAmount,
			).Error; err != nil {
				log.Fatalf("failed to insert expense type rule %s: %v", r.ExpenseType, err)
			}
			fmt.Printf("Seeded expense type rule: %s\n", r.ExpenseType)
		}

		var entries int64
		if err := db.Raw("SELECT COUNT(1) FROM transactions WHERE association_id = ?", assocID).Row().Scan(&entries); err == nil && entries == 0 {
			openers := []struct {
				Type      string
				Amount    int64
				Reference string
			}{
				{"cotisation", 120000, "cotisations annuelles"},
				{"don", 50000, "don de la mairie"},
				{"subvention", 200000, "subvention departementale"},
			}
			for _, o := range openers {
				if err := db.Exec(
					"INSERT INTO transactions (association_id, type, amount, net_amount, currency, status, reference, created_at, updated_at) VALUES (?, ?, ?, ?, 'EUR', 'completed', ?, now(), now())",
					assocID, o.Type, o.Amount, o.Amount, o.Reference,
				).Error; err != nil {
					log.Fatalf("failed to insert opening entry %s: %v", o.Type, err)
				}
			}
			fmt.Println("Seeded opening ledger entries")
		}

		fmt.Println("Seeding complete for association:", assocName)
	},
}

func int64Ptr(v int64) *int64 { return &v }
