/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

const (
	// Price queries
	queryUpsertPrice = `
		INSERT INTO price_states (
			symbol, last_price, last_confidence, last_publish_time,
			prev_price, prev_confidence, prev_publish_time, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			prev_price = price_states.last_price,
			prev_confidence = price_states.last_confidence,
			prev_publish_time = price_states.last_publish_time,
			last_price = excluded.last_price,
			last_confidence = excluded.last_confidence,
			last_publish_time = excluded.last_publish_time,
			updated_at = excluded.updated_at
		WHERE excluded.last_publish_time > price_states.last_publish_time`

	queryGetPrice = `
		SELECT symbol, last_price, last_confidence, last_publish_time,
		       prev_price, prev_confidence, prev_publish_time, updated_at
		FROM price_states
		WHERE symbol = ?`

	queryListPrices = `
		SELECT symbol, last_price, last_confidence, last_publish_time,
		       prev_price, prev_confidence, prev_publish_time, updated_at
		FROM price_states
		ORDER BY symbol`

	// Fee queries
	queryInsertFeeEvent = `
		INSERT INTO fee_events (id, user_id, signature, kind, tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(signature, kind) DO NOTHING`

	queryListFeeEvents = `
		SELECT id, user_id, signature, kind, tokens, created_at
		FROM fee_events
		WHERE user_id = ?
		ORDER BY created_at, id`

	queryGetFeeTotal = `
		SELECT amount_base
		FROM user_fee_totals
		WHERE user_id = ? AND mint = ?`

	queryInsertFeeTotal = `
		INSERT INTO user_fee_totals (user_id, mint, amount_base, decimals, symbol, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, mint) DO NOTHING`

	queryCompareAndSwapFeeTotal = `
		UPDATE user_fee_totals
		SET amount_base = ?,
		    decimals = CASE WHEN decimals = 0 THEN ? ELSE decimals END,
		    symbol = CASE WHEN symbol = '' THEN ? ELSE symbol END,
		    updated_at = ?
		WHERE user_id = ? AND mint = ? AND amount_base = ?`

	queryGetFeeTotals = `
		SELECT mint, amount_base, decimals, symbol
		FROM user_fee_totals
		WHERE user_id = ?
		ORDER BY mint`

	queryDeleteFeeTotals = `
		DELETE FROM user_fee_totals WHERE user_id = ?`

	queryReplaceFeeTotal = `
		INSERT INTO user_fee_totals (user_id, mint, amount_base, decimals, symbol, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	// Rate limit queries
	queryCreateWindow = `
		INSERT INTO rate_limit_windows (id, bucket_key, window_start, count, expires_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(bucket_key, window_start) DO NOTHING`

	queryIncrementWindow = `
		UPDATE rate_limit_windows
		SET count = count + 1
		WHERE bucket_key = ? AND window_start = ? AND count < ?
		RETURNING count`

	queryDeleteExpiredWindows = `
		DELETE FROM rate_limit_windows
		WHERE id IN (
			SELECT id FROM rate_limit_windows
			WHERE expires_at < ?
			ORDER BY expires_at
			LIMIT ?
		)`
)
