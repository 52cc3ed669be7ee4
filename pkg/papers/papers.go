package papers

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Paper is a bibliography entry from the local research database.
type Paper struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Authors  string `json:"authors"`
}

// DB is a small read-mostly sqlite store of papers used to ground research
// answers. It seeds itself with a starter bibliography on first open.
type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening papers db: %w", err)
	}
	d := &DB{db: db}
	if err := d.init(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) init() error {
	_, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS papers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		abstract TEXT NOT NULL,
		authors TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating papers table: %w", err)
	}

	var count int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM papers`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, p := range seedPapers {
		if _, err := tx.Exec(`INSERT INTO papers (title, abstract, authors) VALUES (?, ?, ?)`,
			p.Title, p.Abstract, p.Authors); err != nil {
			return fmt.Errorf("seeding papers: %w", err)
		}
	}
	return tx.Commit()
}

// Search matches query case-insensitively against title, abstract and
// authors.
func (d *DB) Search(ctx context.Context, query string) ([]Paper, error) {
	pattern := "%" + query + "%"
	rows, err := d.db.QueryContext(ctx,
		`SELECT title, abstract, authors FROM papers
		 WHERE title LIKE ? OR abstract LIKE ? OR authors LIKE ?
		 ORDER BY id`,
		pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("searching papers: %w", err)
	}
	defer rows.Close()

	var out []Paper
	for rows.Next() {
		var p Paper
		if err := rows.Scan(&p.Title, &p.Abstract, &p.Authors); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) Close() error {
	return d.db.Close()
}

var seedPapers = []Paper{
	{
		Title:    "Attention Is All You Need",
		Abstract: "Introduces the Transformer, a sequence transduction architecture based entirely on attention mechanisms, dispensing with recurrence and convolutions.",
		Authors:  "Vaswani, Shazeer, Parmar, Uszkoreit, Jones, Gomez, Kaiser, Polosukhin",
	},
	{
		Title:    "BERT: Pre-training of Deep Bidirectional Transformers for Language Understanding",
		Abstract: "Presents BERT, which pre-trains deep bidirectional representations by jointly conditioning on left and right context in all layers.",
		Authors:  "Devlin, Chang, Lee, Toutanova",
	},
	{
		Title:    "Language Models are Few-Shot Learners",
		Abstract: "Shows that scaling language models to 175 billion parameters (GPT-3) greatly improves task-agnostic, few-shot performance.",
		Authors:  "Brown, Mann, Ryder, Subbiah, Kaplan, et al.",
	},
	{
		Title:    "Okapi at TREC-3",
		Abstract: "Describes the Okapi BM25 ranking function, a probabilistic term-weighting scheme that remains a strong lexical retrieval baseline.",
		Authors:  "Robertson, Walker, Jones, Hancock-Beaulieu, Gatford",
	},
	{
		Title:    "A Neural Probabilistic Language Model",
		Abstract: "Proposes learning a distributed representation for words together with the probability function for word sequences.",
		Authors:  "Bengio, Ducharme, Vincent, Jauvin",
	},
}
