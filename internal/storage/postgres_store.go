package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/example/food-rescue/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) SaveDonation(ctx context.Context, d *models.Donation) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO donations(
		id, donor_id, donor_name, donor_phone, food_description, quantity, food_kind,
		pickup_address, lat, lon, preferred_pickup_time, expiry_time, images,
		status, assigned_carrier, delivered_to, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		d.ID, nullStr(d.DonorID), d.DonorName, d.DonorPhone, d.FoodDesc, d.Quantity, string(d.Kind),
		d.PickupAddress, d.Loc.Lat, d.Loc.Lon, d.PreferredAt, d.ExpiresAt, pq.Array(d.Images),
		string(d.Status), nullStr(d.AssignedCarrier), nullStr(d.DeliveredTo), d.CreatedAt, d.UpdatedAt)
	return err
}

func (p *PostgresStore) UpdateDonation(ctx context.Context, d *models.Donation) error {
	res, err := p.db.ExecContext(ctx, `UPDATE donations
		SET status=$1, assigned_carrier=$2, delivered_to=$3, updated_at=$4 WHERE id=$5`,
		string(d.Status), nullStr(d.AssignedCarrier), nullStr(d.DeliveredTo), time.Now(), d.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) GetDonation(ctx context.Context, id string) (*models.Donation, error) {
	row := p.db.QueryRowContext(ctx, donationSelect+` WHERE id=$1`, id)
	return scanDonation(row)
}

func (p *PostgresStore) ListCarrierTasks(ctx context.Context, carrierID string) ([]*models.Donation, error) {
	rows, err := p.db.QueryContext(ctx, donationSelect+` WHERE assigned_carrier=$1 ORDER BY created_at DESC`, carrierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CountDelivered(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM donations WHERE status='delivered'`).Scan(&n)
	return n, err
}

func (p *PostgresStore) SaveAssignmentLog(ctx context.Context, l *models.AssignmentLog) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO assignment_logs(carrier_id, donation_id, accepted_at)
		VALUES($1,$2,$3)`, l.CarrierID, l.DonationID, l.AcceptedAt)
	return err
}

func (p *PostgresStore) MarkPickedUp(ctx context.Context, donationID string, at time.Time) error {
	_, err := p.db.ExecContext(ctx, `UPDATE assignment_logs SET picked_up_at=$1 WHERE donation_id=$2`, at, donationID)
	return err
}

func (p *PostgresStore) MarkDelivered(ctx context.Context, donationID string, at time.Time) error {
	_, err := p.db.ExecContext(ctx, `UPDATE assignment_logs SET delivered_at=$1 WHERE donation_id=$2`, at, donationID)
	return err
}

const donationSelect = `SELECT id, donor_id, donor_name, donor_phone, food_description,
	quantity, food_kind, pickup_address, lat, lon, preferred_pickup_time, expiry_time,
	images, status, assigned_carrier, delivered_to, created_at, updated_at FROM donations`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDonation(row rowScanner) (*models.Donation, error) {
	var d models.Donation
	var donorID, carrier, site sql.NullString
	var kind, status string
	if err := row.Scan(&d.ID, &donorID, &d.DonorName, &d.DonorPhone, &d.FoodDesc,
		&d.Quantity, &kind, &d.PickupAddress, &d.Loc.Lat, &d.Loc.Lon, &d.PreferredAt,
		&d.ExpiresAt, pq.Array(&d.Images), &status, &carrier, &site, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.Kind = models.FoodKind(kind)
	d.Status = models.DonationStatus(status)
	d.DonorID = donorID.String
	d.AssignedCarrier = carrier.String
	d.DeliveredTo = site.String
	return &d, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
