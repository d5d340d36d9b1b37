package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliveriesDDL creates the ledger the stress notifier writes each
// acknowledged webhook delivery into.
const DeliveriesDDL = `CREATE TABLE IF NOT EXISTS stress_deliveries (
    id           BIGSERIAL PRIMARY KEY,
    deal_id      BIGINT NOT NULL,
    kind         TEXT NOT NULL,
    delivered_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_status_not_blank",
			SQL:  `SELECT id, status FROM deal_submissions WHERE btrim(status) = ''`,
		},
		{
			Name: "O2_updated_not_before_created",
			SQL:  `SELECT id, created_at, updated_at FROM deal_submissions WHERE updated_at < created_at`,
		},
		{
			Name: "O3_sent_not_before_created",
			SQL: `SELECT id, created_at, sent_deal_description_at, sent_jv_agreement_at
                  FROM deal_submissions
                  WHERE sent_deal_description_at < created_at
                     OR sent_jv_agreement_at < created_at`,
		},
		{
			Name: "O4_document_key_shape",
			SQL: `SELECT id, purchase_agreement_key, assignment_agreement_key, jv_agreement_key
                  FROM deal_submissions
                  WHERE purchase_agreement_key   !~ '^[0-9]+-[A-Za-z0-9._-]+$'
                     OR assignment_agreement_key !~ '^[0-9]+-[A-Za-z0-9._-]+$'
                     OR jv_agreement_key         !~ '^[0-9]+-[A-Za-z0-9._-]+$'`,
		},
		{
			Name: "O5_description_sent_without_delivery",
			SQL: `SELECT d.id, d.sent_deal_description_at FROM deal_submissions d
                  WHERE d.sent_deal_description_at IS NOT NULL
                    AND NOT EXISTS (SELECT 1 FROM stress_deliveries s
                                    WHERE s.deal_id = d.id AND s.kind = 'deal_description')`,
		},
		{
			Name: "O6_jv_sent_without_delivery",
			SQL: `SELECT d.id, d.sent_jv_agreement_at FROM deal_submissions d
                  WHERE d.sent_jv_agreement_at IS NOT NULL
                    AND NOT EXISTS (SELECT 1 FROM stress_deliveries s
                                    WHERE s.deal_id = d.id AND s.kind = 'jv_agreement')`,
		},
	}
}

// Run executes every oracle and returns the name and first row of the first
// one that matches anything. An empty name means all oracles passed.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return "", "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		if rows.Next() {
			vals, _ := rows.Values()
			rows.Close()
			return o.Name, fmt.Sprint(vals), nil
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return "", "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
	}
	return "", "", nil
}
