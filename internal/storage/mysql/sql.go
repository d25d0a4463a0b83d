package mysql

const insertMovieSQL = `
INSERT INTO movies
  (title, original_title, year, duration, age_rating, genres, plot, poster)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

// 6 params per row; completed with one "(?,?,?,?,?,?)" group per showing.
const insertShowingsPrefix = "INSERT INTO showings\n  (movie_id, city, starts_at, venue, is_3d, booking_url)\nVALUES "

const updateMovieSQL = `
UPDATE movies SET
  title          = ?,
  original_title = ?,
  year           = ?,
  duration       = ?,
  age_rating     = ?,
  genres         = ?,
  plot           = ?,
  poster         = ?
WHERE id = ?
`

const listMoviesSQL = `
SELECT id, title, original_title, year, duration, age_rating, genres, plot, poster
FROM movies
ORDER BY id
`

const listShowingsSQL = `
SELECT id, movie_id, city, starts_at, venue, is_3d, booking_url
FROM showings
ORDER BY movie_id, id
`

// showings go with the movie through ON DELETE CASCADE
const deleteMovieSQL = `DELETE FROM movies WHERE id = ?`

const reassignShowingsSQL = `UPDATE showings SET movie_id = ? WHERE movie_id = ?`

const deleteOrphanMoviesSQL = `
DELETE m FROM movies m
LEFT JOIN showings s ON s.movie_id = m.id
WHERE s.id IS NULL
`

const listTitleMappingsSQL = `SELECT original_title, new_original_title FROM title_mappings ORDER BY original_title`

const upsertTitleMappingSQL = `
INSERT INTO title_mappings (original_title, new_original_title)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE new_original_title = VALUES(new_original_title)
`

const listGenreMappingsSQL = `SELECT genre, new_genre FROM genre_mappings ORDER BY genre`

const upsertGenreMappingSQL = `
INSERT INTO genre_mappings (genre, new_genre)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE new_genre = VALUES(new_genre)
`

const profileColumns = `original_title, title, year, duration, age_rating, genres, plot`

const getProfileSQL = `SELECT ` + profileColumns + ` FROM movie_profiles WHERE original_title = ?`

const listProfilesSQL = `SELECT ` + profileColumns + ` FROM movie_profiles ORDER BY original_title`

const insertProfileSQL = `
INSERT INTO movie_profiles (` + profileColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const upsertProfileSQL = insertProfileSQL + `
ON DUPLICATE KEY UPDATE
  title      = VALUES(title),
  year       = VALUES(year),
  duration   = VALUES(duration),
  age_rating = VALUES(age_rating),
  genres     = VALUES(genres),
  plot       = VALUES(plot),
  updated_at = CURRENT_TIMESTAMP
`

// Featured rows are read with a LEFT JOIN so a link to a vanished movie comes
// back as NULL.
const listFeaturedSQL = `
SELECT f.id, m.id, f.label, f.title, f.original_title, f.start_date, f.end_date, f.image_url
FROM featured f
LEFT JOIN movies m ON m.id = f.movie_id
ORDER BY f.id
`

const insertFeaturedSQL = `
INSERT INTO featured (movie_id, label, title, original_title, start_date, end_date, image_url)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const updateFeaturedSQL = `
UPDATE featured SET
  movie_id       = ?,
  label          = ?,
  title          = ?,
  original_title = ?,
  start_date     = ?,
  end_date       = ?,
  image_url      = ?
WHERE id = ?
`
